package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// wantJSON reports whether the global format flag asks for JSON output.
// Table output is rendered per command through the ui package.
func wantJSON() bool {
	return strings.ToLower(outputFormat) == "json"
}

// validateFormat rejects anything other than the two supported formats
func validateFormat() error {
	switch strings.ToLower(outputFormat) {
	case "json", "table":
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, table)", outputFormat)
	}
}

// writeJSON encodes data as indented JSON to the writer
func writeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
