package api

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"shotbuddy/internal/shot"
)

// Export formats accepted by EncodeExport.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// EncodeExport writes doc in the requested format.
func EncodeExport(w io.Writer, doc ExportDocument, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
	return shot.Wrap(shot.ErrValidation, "export", "encode", fmt.Sprintf("unsupported format %q", format), nil)
}
