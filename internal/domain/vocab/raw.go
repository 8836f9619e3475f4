package vocab

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// RawName is the default name of the raw category vocabulary.
const RawName = "raw"

//go:embed raw_categories.yaml
var rawCategoriesYAML []byte

// rawFile is the on-disk layout of a category list.
type rawFile struct {
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"`
}

// LoadRaw decodes a category list. Raw vocabularies carry no weights or aliases.
func LoadRaw(r io.Reader) (*Vocabulary, error) {
	var f rawFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode category list: %w", err)
	}
	name := f.Name
	if name == "" {
		name = RawName
	}
	return New(name, f.Categories)
}

// LoadRawFile reads a category list from path.
func LoadRawFile(path string) (*Vocabulary, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open category list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadRaw(f)
}

// Raw returns the built-in raw category vocabulary.
var Raw = sync.OnceValue(func() *Vocabulary {
	v, err := LoadRaw(bytes.NewReader(rawCategoriesYAML))
	if err != nil {
		panic(err)
	}
	return v
})
