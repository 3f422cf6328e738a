package main

import (
	"os"
	"testing"

	"github.com/masahif/wikicrawl/internal/cmd"
)

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty string")
	}

	if BuildTime == "" {
		t.Error("BuildTime should not be empty string")
	}
}

// TestMainLogic tests the logic inside main() without calling main() directly
func TestMainLogic(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	cmd.SetVersionInfo(Version, BuildTime)

	// main exits non-zero whenever Execute fails
	os.Args = []string{"wikicrawl"}
	if err := cmd.Execute(); err == nil {
		t.Error("cmd.Execute() without a start URL should fail")
	}

	os.Args = []string{"wikicrawl", "--version"}
	if err := cmd.Execute(); err != nil {
		t.Errorf("cmd.Execute() with version should not return error, got: %v", err)
	}

	os.Args = []string{"wikicrawl", "--help"}
	if err := cmd.Execute(); err != nil {
		t.Errorf("cmd.Execute() with help should not return error, got: %v", err)
	}
}
