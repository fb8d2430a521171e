package catalog

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type document struct {
	Criteria []Criterion `koanf:"criteria"`
}

// LoadFile reads a YAML catalog document of the form
//
//	criteria:
//	  - id: deliverables_quality
//	    layer: Delivery
//	    ...
//
// and validates it with New.
func LoadFile(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadCatalog, path, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadCatalog, path, err)
	}

	c, err := New(doc.Criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCatalog, path, err)
	}
	return c, nil
}
