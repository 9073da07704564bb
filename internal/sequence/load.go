package sequence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProgram reads and validates a YAML timeline.
func LoadProgram(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	return ParseProgram(b)
}

func ParseProgram(b []byte) (Program, error) {
	var p Program
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Program{}, fmt.Errorf("parse sequence: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Program{}, err
	}
	return p, nil
}
