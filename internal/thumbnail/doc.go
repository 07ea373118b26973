// Package thumbnail renders JPEG previews for board assets.
//
// Stills are decoded (jpeg, png, webp), scaled into the configured box with
// Catmull-Rom resampling and flattened onto a dark grey background. Videos
// are sampled with ffmpeg; when ffmpeg is unavailable Generate reports
// ErrUnavailable and callers show the slot without a preview.
package thumbnail
