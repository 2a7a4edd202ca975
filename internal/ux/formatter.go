package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// TextRenderer is implemented by results with a human-readable rendering
type TextRenderer interface {
	RenderText(w io.Writer) error
}

type encodeFunc func(w io.Writer, data any) error

var encoders = map[string]encodeFunc{
	FormatText: encodeText,
	FormatJSON: encodeJSON,
	FormatYAML: encodeYAML,
}

// ParseFormat normalizes an --output value. Empty means text.
func ParseFormat(s string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(s))
	if format == "" {
		return FormatText, nil
	}
	if _, ok := encoders[format]; !ok {
		return "", fmt.Errorf("unknown output format %q (supported: %s)", s, strings.Join(Formats, ", "))
	}
	return format, nil
}

// Render writes a command result to w in the given format.
//
// json and yaml encode the exported fields; text needs a TextRenderer,
// a fmt.Stringer or a string.
func Render(w io.Writer, format string, data any) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}
	return encoders[format](w, data)
}

func encodeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func encodeYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func encodeText(w io.Writer, data any) error {
	switch v := data.(type) {
	case TextRenderer:
		return v.RenderText(w)
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	default:
		return fmt.Errorf("text output is not supported for %T", data)
	}
}
