package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Products []Product `yaml:"products"`
}

// LoadSeed parses a YAML product list and rejects duplicate or incomplete entries.
func LoadSeed(r io.Reader) ([]Product, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Products))
	for i, p := range f.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("seed product #%d: missing id", i)
		}
		if p.PriceCents < 0 || p.OriginalPriceCents < 0 {
			return nil, fmt.Errorf("seed product %s: negative price", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("seed product %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return f.Products, nil
}

// DefaultSeed returns the built-in demo catalog.
func DefaultSeed() []Product {
	ps, err := LoadSeed(bytes.NewReader(defaultSeed))
	if err != nil {
		panic(err)
	}
	return ps
}

// LoadSeedFile reads a seed from path; an empty path yields the built-in catalog.
func LoadSeedFile(path string) ([]Product, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSeed(f)
}
