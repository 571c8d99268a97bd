package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlEntry mirrors Entry with YAML-friendly field names; MigrateFunc has
// no serializable form, so tags loaded this way never carry a migrator and
// must be wired to one in code after loading if migration is needed.
type yamlEntry struct {
	Tag          uint16 `yaml:"tag"`
	MaxLength    uint32 `yaml:"max_length"`
	Priority     uint8  `yaml:"priority"`
	Version      uint8  `yaml:"version"`
	BackupEnable bool   `yaml:"backup_enable"`
	Name         string `yaml:"name"`
}

type yamlTable struct {
	Tags []yamlEntry `yaml:"tags"`
}

// LoadYAML reads a schema table from a YAML file of the form:
//
//	tags:
//	  - tag: 0x1001
//	    max_length: 64
//	    version: 1
//	    name: system_config
//
// It is the CLI's --schema flag format, letting an operator describe a
// device's tag table without recompiling.
func LoadYAML(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}

	var table yamlTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(table.Tags))
	for _, t := range table.Tags {
		entries = append(entries, Entry{
			Tag:          t.Tag,
			MaxLength:    t.MaxLength,
			Priority:     t.Priority,
			Version:      t.Version,
			BackupEnable: t.BackupEnable,
			Name:         t.Name,
		})
	}

	return NewStaticRegistry(entries), nil
}
