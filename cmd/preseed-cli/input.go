package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// readInstallConfig reads an install configuration from name, or from in
// when name is "-", and returns it as JSON. Files ending in .toml are
// converted.
func readInstallConfig(name string, in io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(filepath.Ext(name), ".toml") {
		return data, nil
	}

	var doc map[string]interface{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", name, err)
	}
	return json.Marshal(doc)
}

// writeOutput writes content to the file name, or to out when name is
// empty or "-".
func writeOutput(name string, out io.Writer, content string) error {
	if name == "" || name == "-" {
		_, err := io.WriteString(out, content)
		return err
	}
	return os.WriteFile(name, []byte(content), 0600)
}
