package synthesis

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/mikey/forensic-intel/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteReport encodes the report as indented JSON. Map keys are sorted.
func WriteReport(w io.Writer, report core.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
