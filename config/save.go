package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Save writes key=value into the YAML file at path, keeping other keys.
// Only keys in Defaults are accepted. The file is created 0600 with its
// parent directory 0700.
func Save(path, key, value string) error {
	if path == "" {
		return fmt.Errorf("config path not set")
	}
	if _, known := Defaults[key]; !known {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s", key, strings.Join(Keys(), ", "))
	}

	existing, err := readFile(path)
	if err != nil {
		return err
	}
	existing[key] = parseValue(value)
	return writeFile(path, existing)
}

// Unset removes key from the YAML file at path. A missing file is not an error.
func Unset(path, key string) error {
	existing, err := readFile(path)
	if err != nil {
		return err
	}
	if _, ok := existing[key]; !ok {
		return nil
	}
	delete(existing, key)
	return writeFile(path, existing)
}

func readFile(path string) (map[string]interface{}, error) {
	existing := make(map[string]interface{})
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if existing == nil {
		existing = make(map[string]interface{})
	}
	return existing, nil
}

func writeFile(path string, values map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	// The file may hold jwt_secret.
	return os.WriteFile(path, data, 0o600)
}

// parseValue converts string values to appropriate types for YAML.
func parseValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
