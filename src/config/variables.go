package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// VariableNotFound is returned when a requested variable isn't present.
type VariableNotFound struct {
	VariableName string
}

func (e *VariableNotFound) Error() string {
	return fmt.Sprintf(
		"variable %q not found; set it in the environment or in the .env file",
		e.VariableName,
	)
}

// VariablesConfig is the interface for any variable loading strategy.
type VariablesConfig interface {
	// Load returns all variables available from this source.
	Load() (map[string]string, error)
	// Get returns a single variable value or an error if not present.
	Get(key string) (string, error)
}

// DotEnv implements VariablesConfig by reading a .env file. Reading never
// touches the process environment.
type DotEnv struct {
	EnvFilePath string
	// Optional makes a missing file load as empty.
	Optional bool
}

func NewDotEnv(path string) *DotEnv {
	return &DotEnv{EnvFilePath: path}
}

// Load reads the .env file and returns a map of key to value.
func (d *DotEnv) Load() (map[string]string, error) {
	vars, err := godotenv.Read(d.EnvFilePath)
	if err != nil {
		if d.Optional && os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", d.EnvFilePath, err)
	}
	return vars, nil
}

// Get loads the file and looks up a single key.
func (d *DotEnv) Get(key string) (string, error) {
	vars, err := d.Load()
	if err != nil {
		return "", err
	}
	return lookup(vars, key)
}

// Environ implements VariablesConfig over KEY=VALUE pairs, by default the
// process environment.
type Environ struct {
	// Entries overrides os.Environ when non-nil.
	Entries func() []string
}

// Load returns the environment as a map.
func (e Environ) Load() (map[string]string, error) {
	entries := os.Environ
	if e.Entries != nil {
		entries = e.Entries
	}
	vars := make(map[string]string)
	for _, kv := range entries() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// Get looks up one variable.
func (e Environ) Get(key string) (string, error) {
	vars, err := e.Load()
	if err != nil {
		return "", err
	}
	return lookup(vars, key)
}

// Merge loads every source in order; later sources win.
func Merge(sources ...VariablesConfig) (map[string]string, error) {
	out := make(map[string]string)
	for _, src := range sources {
		if src == nil {
			continue
		}
		vars, err := src.Load()
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			out[k] = v
		}
	}
	return out, nil
}

func lookup(vars map[string]string, key string) (string, error) {
	if val, ok := vars[key]; ok {
		return val, nil
	}
	return "", &VariableNotFound{VariableName: key}
}
