//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for adverse-events developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/krishna-gramener/adverse-events/internal/config"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

const (
	binDir     = "bin"
	binName    = "adverse-events"
	cmdPkg     = "./cmd/adverse-events"
	sampleFile = "adverse-events.yaml"
)

// Init creates the settings directory and writes a sample config file with
// every default filled in. An existing config file is left alone.
func Init() error {
	v := viper.New()
	config.SetDefaults(v)

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("reading defaults: %w", err)
	}

	if err := os.MkdirAll(cfg.Store.Dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", cfg.Store.Dir, err)
	}
	fmt.Println("  ", cfg.Store.Dir)

	if _, err := os.Stat(sampleFile); err == nil {
		fmt.Printf("%s already exists, not overwriting.\n", sampleFile)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding sample config: %w", err)
	}
	if err := os.WriteFile(sampleFile, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", sampleFile, err)
	}
	fmt.Printf("Wrote %s. Run `adverse-events configure` to set the endpoints.\n", sampleFile)
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Check runs vet and the tests.
func Check() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	mg.Deps(Test)
	return nil
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	var prod, test, words int
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if (path != "." && strings.HasPrefix(d.Name(), "_")) || d.Name() == ".git" || d.Name() == binDir {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".go":
			n, err := countLines(path)
			if err != nil {
				return err
			}
			if strings.HasSuffix(path, "_test.go") {
				test += n
			} else {
				prod += n
			}
		case ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			words += len(bytes.Fields(data))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	fmt.Printf("Words (documentation):           %d\n", words)
	return nil
}

// countLines counts non-blank lines in a file.
func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n, nil
}
