//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// runCLI executes the built binary with the given arguments.
func runCLI(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", binName, args, err)
	}
	return nil
}

// Fetch builds the CLI and runs the abstract fetching stage.
func Fetch() error {
	mg.Deps(Build)
	return runCLI("fetch")
}

// Enrich builds the CLI and runs the enrichment stage.
func Enrich() error {
	mg.Deps(Build)
	return runCLI("enrich")
}

// Serve builds the CLI and starts the dashboard server.
func Serve() error {
	mg.Deps(Build)
	return runCLI("serve")
}
