// Package promptmeta reads generator prompts embedded in PNG text chunks.
//
// Two layouts are recognised: the Automatic1111 "parameters" chunk, whose
// first non-empty line is the positive prompt and whose "Negative prompt:"
// line carries the negative, and ComfyUI "prompt"/"workflow" JSON graphs,
// where CLIPTextEncode nodes hold the texts in their widget values.
package promptmeta
