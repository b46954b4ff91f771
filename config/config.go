package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

const DefaultTrunkBranch = "main"

// Config is the optional project-config file (§6's AMBIENT STACK): a
// convenience for re-running the same project with the same root-path
// changes and trunk branch name, without retyping them on the command
// line every time. It never overrides an explicit flag — main.go applies
// it first, then lets kingpin flags win.
type Config struct {
	TrunkBranch      string   `yaml:"trunk_branch"`
	RootPathChanges  []string `yaml:"root_path_changes"`
	DegreeOfParallel int      `yaml:"degree_of_parallelism"`
}

// Unmarshal parses the YAML config, applying defaults first.
func Unmarshal(config []byte) (*Config, error) {
	cfg := &Config{
		TrunkBranch: DefaultTrunkBranch,
	}
	if err := yaml.Unmarshal(config, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters (like match patterns)", err.Error())
	}
	return cfg, nil
}

// LoadConfigFile loads and parses a project-config file.
func LoadConfigFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}
