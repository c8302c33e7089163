// Package patterns loads user pattern libraries: ordered lists of
// {name, regex} definitions in YAML form. The pipeline itself only consumes
// the in-memory list; how the library is persisted is owned elsewhere.
package patterns

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/log-grapher/backend/internal/models"
)

// Library is an ordered, named collection of extraction patterns.
type Library struct {
	Name     string           `yaml:"name,omitempty"`
	Patterns []models.Pattern `yaml:"patterns"`
}

// Load reads a pattern library from a YAML file.
func Load(filePath string) (*Library, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses a pattern library from an io.Reader.
func LoadFromReader(r io.Reader) (*Library, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, err
	}
	if err := Validate(lib.Patterns); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks pattern names are present and unique within the list.
// Regex validity is advisory here: a broken regex still loads (it simply
// never matches at run time), but a pattern with no capture group can never
// produce a value, so that is rejected up front.
func Validate(patterns []models.Pattern) error {
	seen := make(map[string]struct{}, len(patterns))
	for i, p := range patterns {
		if p.Name == "" {
			return fmt.Errorf("pattern %d: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("pattern %d: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		if re.NumSubexp() == 0 {
			return fmt.Errorf("pattern %q: regex has no capture group", p.Name)
		}
	}
	return nil
}
