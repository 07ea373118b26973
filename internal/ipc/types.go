package ipc

import "shotbuddy/internal/api"

// StatusRequest requests the daemon status.
type StatusRequest struct{}

// StatusResponse returns daemon runtime information.
type StatusResponse struct {
	api.DaemonStatus
}

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ListShotsRequest lists the board.
type ListShotsRequest struct{}

// ShotsResponse carries the ordered board.
type ShotsResponse struct {
	Shots []api.Shot `json:"shots"`
	api.ErrorResponse
}

// InsertShotRequest creates a shot after AfterKey; empty inserts at the head.
type InsertShotRequest struct {
	AfterKey string `json:"after_key"`
}

// RenameShotRequest renames a shot.
type RenameShotRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// UploadAssetRequest stores a new slot version. An empty Slot is inferred
// from the file extension.
type UploadAssetRequest struct {
	ShotName string `json:"shot_name"`
	Slot     string `json:"slot"`
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// SaveNotesRequest replaces a shot's notes.
type SaveNotesRequest struct {
	ShotName string `json:"shot_name"`
	Notes    string `json:"notes"`
}

// ShotResponse carries one updated shot.
type ShotResponse struct {
	Shot api.Shot `json:"shot"`
	api.ErrorResponse
}

// PromptRequest addresses the prompt of one slot version.
type PromptRequest struct {
	ShotName string `json:"shot_name"`
	Slot     string `json:"slot"`
	Version  int    `json:"version"`
}

// PromptResponse returns stored prompt text; empty when none was saved.
type PromptResponse struct {
	Prompt string `json:"prompt"`
	api.ErrorResponse
}

// SavePromptRequest stores prompt text for one slot version.
type SavePromptRequest struct {
	ShotName string `json:"shot_name"`
	Slot     string `json:"slot"`
	Version  int    `json:"version"`
	Text     string `json:"text"`
}

// AssetVersionsRequest lists the versions of a slot.
type AssetVersionsRequest struct {
	ShotName string `json:"shot_name"`
	Slot     string `json:"slot"`
}

// AssetVersionsResponse returns ascending version numbers.
type AssetVersionsResponse struct {
	Versions []int `json:"versions"`
	api.ErrorResponse
}

// SettingsRequest reads board settings.
type SettingsRequest struct{}

// UpdateSettingsRequest applies a partial settings change.
type UpdateSettingsRequest struct {
	Update api.SettingsUpdate `json:"update"`
}

// SettingsResponse returns the effective settings.
type SettingsResponse struct {
	Settings api.Settings `json:"settings"`
	api.ErrorResponse
}

// ReferencesRequest lists reference images.
type ReferencesRequest struct{}

// ReferencesResponse returns reference images sorted by name.
type ReferencesResponse struct {
	References []api.Reference `json:"references"`
	api.ErrorResponse
}

// ExportRequest snapshots the board.
type ExportRequest struct{}

// ExportResponse carries the export document.
type ExportResponse struct {
	Document api.ExportDocument `json:"document"`
	api.ErrorResponse
}
