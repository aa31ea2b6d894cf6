package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// encodeYAML serializes v with two-space indentation. An empty document
// encodes to nothing so `---\n---\n` round-trips.
func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if bytes.Equal(bytes.TrimSpace(out), []byte("{}")) {
		return []byte{}, nil
	}
	return out, nil
}
