package flow

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/tluyben/huntflow/types"
)

//go:embed builtin/*.yml
var builtinFS embed.FS

// Builtin returns the flow definitions shipped with huntflow, sorted by name.
func Builtin() ([]*Definition, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	var defs []*Definition
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, err
		}
		d, err := Parse(e.Name(), data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name() < defs[j].Name() })
	return defs, nil
}

// LoadDir reads every .yml, .yaml and .json flow file under dir.
func LoadDir(dir string) ([]*Definition, error) {
	var defs []*Definition
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isFlowFile(p) {
			return nil
		}
		d, err := LoadFile(p)
		if err != nil {
			return err
		}
		defs = append(defs, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// LoadFile reads a single flow file.
func LoadFile(p string) (*Definition, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", p, err)
	}
	return Parse(p, data)
}

// Parse decodes a flow file. The extension of name selects JSON or YAML.
func Parse(name string, data []byte) (*Definition, error) {
	var f types.Flow
	var err error
	if strings.HasSuffix(name, ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing file %s: %w", name, err)
	}
	d, err := FromFile(f)
	if err != nil {
		return nil, fmt.Errorf("error loading flow from %s: %w", name, err)
	}
	return d, nil
}

func isFlowFile(p string) bool {
	switch filepath.Ext(p) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}
