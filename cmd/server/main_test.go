package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoola/core/internal/modules/summary"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFingerprintFromStdin(t *testing.T) {
	out, err := run(t, "  Hello\n\tWORLD  ", "fingerprint")
	require.NoError(t, err)
	assert.Contains(t, out, "fingerprint: "+summary.Fingerprint("hello world"))
	assert.Contains(t, out, "snippet:     hello world")
}

func TestFingerprintFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tos.txt")
	require.NoError(t, os.WriteFile(path, []byte("Terms apply."), 0o644))

	out, err := run(t, "", "fingerprint", path)
	require.NoError(t, err)
	assert.Contains(t, out, summary.Fingerprint("terms apply."))
}

func TestFingerprintRejectsEmpty(t *testing.T) {
	_, err := run(t, " \n ", "fingerprint")
	require.ErrorIs(t, err, summary.ErrEmptyContent)
}

func TestLanguagesSeedIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	body := "env: test\ndatabase:\n  driver: sqlite\n  path: " + filepath.Join(dir, "yoola.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	out, err := run(t, "", "languages", "seed", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 20 languages into sqlite")
}

func TestLanguagesSeedRejectsMemory(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  driver: memory\n"), 0o644))

	_, err := run(t, "", "languages", "seed", "--config", cfgPath)
	require.Error(t, err)
}
