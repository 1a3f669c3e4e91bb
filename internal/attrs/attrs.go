package attrs

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Namespace prefixes every attribute the post-processor reads. Bare keys are
// accepted as a fallback so callers outside a document build can use them.
const Namespace = "improvethisdoc."

// Recognized attribute keys.
const (
	RootDir        = "rootDir"
	SrcDir         = "srcDir"
	Organisation   = "organisation"
	Repo           = "repo"
	Branch         = "branch"
	Host           = "host"
	Label          = "label"
	EditLabel      = "editLabel"
	SourceLabel    = "sourceLabel"
	HistoryLabel   = "historyLabel"
	RawLabel       = "rawLabel"
	BlameLabel     = "blameLabel"
	Variant        = "variant"
	Match          = "match"
	ReservedMarker = "reservedMarker"
	Levels         = "levels"
)

// Attributes is a read-only key to string lookup.
type Attributes map[string]string

// Get returns the namespaced value for key, then the bare value, then fallback.
// Blank values are treated as unset.
func (a Attributes) Get(key, fallback string) string {
	if v, ok := a.lookup(Namespace + key); ok {
		return v
	}
	if v, ok := a.lookup(key); ok {
		return v
	}
	return fallback
}

func (a Attributes) lookup(key string) (string, bool) {
	v, ok := a[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Merge combines layers into a new set; later layers override earlier ones.
func Merge(layers ...Attributes) Attributes {
	out := Attributes{}
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// ParseYAML reads a flat mapping of attribute names to scalar values.
func ParseYAML(r io.Reader) (Attributes, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read attributes: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse attributes yaml: %w", err)
	}
	out := make(Attributes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case map[string]any, []any:
			return nil, fmt.Errorf("attribute %q: expected a scalar value", k)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// ParsePairs parses "key=value" strings as given on a command line.
func ParsePairs(pairs []string) (Attributes, error) {
	out := make(Attributes, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid attribute %q: expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
