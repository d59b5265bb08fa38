package main

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAngularCommand_MissingProject(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "angular")
	cmd.Dir = t.TempDir()
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "--project must be provided")
}

func TestAngularCommand_NotAProjectRoot(t *testing.T) {
	binaryPath := getBinaryPath(t)
	projectDir := t.TempDir()

	cmd := exec.Command(binaryPath, "angular", "--project", projectDir)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "GEMINI_API_KEY=test-key")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "angular.json not found")
}
