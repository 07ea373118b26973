package api

// Slot describes one media slot of a shot.
type Slot struct {
	Label        string `json:"label" yaml:"-"`
	Version      int    `json:"version" yaml:"version"`
	File         string `json:"file,omitempty" yaml:"file,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" yaml:"-"`
	Prompt       string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// Shot is a board row.
type Shot struct {
	Name    string          `json:"name" yaml:"name"`
	Notes   string          `json:"notes" yaml:"notes,omitempty"`
	Image   Slot            `json:"image" yaml:"image"`
	Video   Slot            `json:"video" yaml:"video"`
	Lipsync map[string]Slot `json:"lipsync,omitempty" yaml:"lipsync,omitempty"`
}

// Settings mirrors the per-project board preferences.
type Settings struct {
	ThumbnailClickBehavior string   `json:"thumbnail_click_behavior"`
	CollapsedShots         []string `json:"collapsed_shots"`
}

// SettingsUpdate carries a partial settings change; nil fields are kept.
type SettingsUpdate struct {
	ThumbnailClickBehavior *string   `json:"thumbnail_click_behavior,omitempty"`
	CollapsedShots         *[]string `json:"collapsed_shots,omitempty"`
}

// Reference is a project reference image.
type Reference struct {
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	URL          string `json:"url"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Project      string             `json:"project"`
	ProjectPath  string             `json:"projectPath"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	HTTPAddress  string             `json:"httpAddress,omitempty"`
	ShotCount    int                `json:"shotCount"`
	MaxShots     int                `json:"maxShots"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the error half of a response on either transport.
type ErrorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// ExportDocument is the shot list written by `shotbuddy export`.
type ExportDocument struct {
	Project  string `json:"project" yaml:"project"`
	Exported string `json:"exported" yaml:"exported"`
	Shots    []Shot `json:"shots" yaml:"shots"`
}

// StatusLine is one labelled row of `shotbuddy status` output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}
