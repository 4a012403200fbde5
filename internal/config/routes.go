package config

import (
	"fmt"
	"os"

	"github.com/aretw0/stanza/pkg/actions"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// RoutesFile is the root structure of a route declaration file.
type RoutesFile struct {
	Routes []map[string]any `yaml:"routes"`
}

// LoadDeclarations reads the route declaration files listed in Routes.
func (c Config) LoadDeclarations() ([]actions.RouteDeclaration, error) {
	var out []actions.RouteDeclaration
	for _, path := range c.Routes {
		decls, err := ReadDeclarations(c.Resolve(path))
		if err != nil {
			return nil, err
		}
		out = append(out, decls...)
	}
	return out, nil
}

// ReadDeclarations reads one route declaration file. Unknown keys are errors.
func ReadDeclarations(path string) ([]actions.RouteDeclaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading routes: %w", err)
	}

	var file RoutesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing routes %s: %w", path, err)
	}

	decls := make([]actions.RouteDeclaration, 0, len(file.Routes))
	for i, raw := range file.Routes {
		var decl actions.RouteDeclaration
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:  mapstructure.StringToSliceHookFunc(" "),
			ErrorUnused: true,
			Result:      &decl,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("%s: route %d: %w", path, i, err)
		}
		if decl.Action == "" {
			return nil, fmt.Errorf("%s: route %d: missing action", path, i)
		}
		decls = append(decls, decl)
	}
	return decls, nil
}
