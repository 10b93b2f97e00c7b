// Package voices holds the fixed catalog of synthesizer voices an agent can use.
package voices

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Voice struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	AudioFile   string `yaml:"audio_file" json:"audio_file"`
}

//go:embed voices.yaml
var catalogYAML []byte

var catalog = mustParse(catalogYAML)

func mustParse(b []byte) []Voice {
	v, err := parse(b)
	if err != nil {
		panic(fmt.Sprintf("voices: embedded catalog: %v", err))
	}
	return v
}

func parse(b []byte) ([]Voice, error) {
	var doc struct {
		Voices []Voice `yaml:"voices"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(doc.Voices))
	for _, v := range doc.Voices {
		if v.ID == "" || v.Name == "" {
			return nil, fmt.Errorf("voice entry missing id or name: %+v", v)
		}
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("duplicate voice id %q", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return doc.Voices, nil
}

// Catalog returns a copy of every available voice in display order.
func Catalog() []Voice {
	out := make([]Voice, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup resolves a voice by id, case-insensitively.
func Lookup(id string) (Voice, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, v := range catalog {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}
