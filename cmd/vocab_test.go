package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/vocab"
)

func TestVocab_PrintsDefault(t *testing.T) {
	out, err := executeCommand(t, "vocab")
	require.NoError(t, err)
	assert.Contains(t, out, "category: Logistics")

	// The output round-trips as a vocabulary file.
	v, err := vocab.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, vocab.Default().Categories(), v.Categories())
}

func TestVocab_FileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - category: Robotics\n    keywords: [robot]\n"), 0o644))

	out, err := executeCommand(t, "vocab", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Robotics")
	assert.NotContains(t, out, "Logistics")
}

func TestVocab_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: []\n"), 0o644))

	_, err := executeCommand(t, "vocab", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no categories defined")
}
