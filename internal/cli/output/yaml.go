package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

// Format formats data as YAML. Structs are passed through JSON first so
// field names follow their json tags, as in JSON output.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	data, err := decodeRaw(data)
	if err != nil {
		return err
	}

	switch data.(type) {
	case nil, map[string]any, []any, string:
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		data = generic
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
