package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var outputFormats = []string{"table", "json", "yaml"}

func validateFormat(format string) error {
	if !lo.Contains(outputFormats, format) {
		return fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(outputFormats, ", "))
	}
	return nil
}

// writeStructured encodes v as json or yaml. Table output is left to the
// caller.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return validateFormat(format)
	}
}
