package extension

import "time"

// Record describes one installed or packed extension. The id is the
// chrome-style 32-char a-p identifier and never changes after assignment.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	SourcePath  string    `json:"source_path"`
	PackedSize  int64     `json:"packed_size"`
	InstalledAt time.Time `json:"installed_at"`
}
