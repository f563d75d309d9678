package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/nodeshim/nodeshim/ws"
)

const rcFileName = ".nodeshimrc"

// Config allows getting nodeshim configuration values.
type Config interface {
	Get(name string) string
}

// Func adapts a lookup function to a Config.
type Func func(name string) string

// Get returns the value of name, or "" if it is not set.
func (f Func) Get(name string) string {
	return f(name)
}

// FromEnv returns a Config which reads the environment of this process.
func FromEnv() Config {
	return Func(os.Getenv)
}

// Static returns a Config backed by a fixed map. A nil map yields a Config without values.
func Static(values map[string]string) Config {
	return Func(func(name string) string {
		return values[name]
	})
}

// FromFile returns a Config with the values of a .nodeshimrc file. A missing file has no values.
func FromFile(path string) (Config, error) {
	values, err := parseFileConfig(path)
	if err != nil {
		return nil, err
	}
	return Static(values), nil
}

// parseFileConfig parses a .nodeshimrc file as a map of key-value configuration values.
func parseFileConfig(rcFilePath string) (map[string]string, error) {
	if _, err := os.Stat(rcFilePath); err != nil {
		if os.IsNotExist(err) {
			// Non-critical error.
			return map[string]string{}, nil
		}
		return nil, err
	}
	return godotenv.Read(rcFilePath)
}

// LocateUserConfigFile locates a .nodeshimrc file in the user's home directory.
func LocateUserConfigFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, rcFileName), nil
}

// LocateProjectConfigFile locates a .nodeshimrc file in the current project root.
func LocateProjectConfigFile() (string, error) {
	workingDirectory, err := os.Getwd()
	if err != nil {
		return "", err
	}
	projectRoot := ws.FindProjectRoot(workingDirectory)
	if projectRoot == "" {
		return "", os.ErrNotExist
	}
	return filepath.Join(projectRoot, rcFileName), nil
}

// Layered returns a Config in which each value comes from the first of configs that sets it.
func Layered(configs ...Config) Config {
	return layers(configs)
}

type layers []Config

func (l layers) Get(name string) string {
	for _, c := range l {
		if value := c.Get(name); value != "" {
			return value
		}
	}
	return ""
}
