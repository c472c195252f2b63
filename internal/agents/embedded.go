package agents

import (
	"embed"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var embeddedFiles embed.FS

// Persona is a declarative agent definition. It only contributes a system
// prompt; it has no memory or tools of its own.
type Persona struct {
	ID           string   `yaml:"-"` // Set during loading
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Personality  string   `yaml:"personality"`
	Capabilities []string `yaml:"capabilities"`
	Instructions []string `yaml:"instructions"`
}

// Catalog maps persona IDs to their definitions
type Catalog map[string]Persona

// SystemPrompt renders the personality line followed by each instruction on its own line.
func (p Persona) SystemPrompt() string {
	lines := make([]string, 0, len(p.Instructions)+1)
	if p.Personality != "" {
		lines = append(lines, "Personality: "+p.Personality)
	}
	lines = append(lines, p.Instructions...)
	return strings.Join(lines, "\n")
}

// LoadBuiltin loads the personas embedded in the binary
func LoadBuiltin() (Catalog, error) {
	catalog := make(Catalog)

	entries, err := embeddedFiles.ReadDir(".")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded agents")
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isYAMLFile(name) {
			continue
		}

		data, err := embeddedFiles.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read embedded agent file %s", name)
		}

		var filePersonas map[string]Persona
		if err := yaml.Unmarshal(data, &filePersonas); err != nil {
			return nil, errors.Wrapf(err, "failed to parse embedded agent file %s", name)
		}

		for id, persona := range filePersonas {
			persona.ID = id
			catalog[id] = persona
		}
	}

	return catalog, nil
}

// Get returns the persona registered under id.
func (c Catalog) Get(id string) (Persona, error) {
	p, ok := c[id]
	if !ok {
		return Persona{}, errors.Errorf("unknown agent %q (available: %s)", id, strings.Join(c.IDs(), ", "))
	}
	return p, nil
}

// IDs lists persona IDs in sorted order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isYAMLFile(name string) bool {
	ext := path.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
