package pubconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(body), 0o644))
}

func TestLoad_MissingFileYieldsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.False(t, cfg.FrozenConfig)
	assert.Empty(t, cfg.Projects)
}

func TestLoad_SubstitutesEnvVarInValue(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"frozenConfig": false,
		"projects": [
			{"name": "${PROJECT_NAME}", "packages": [{"name": "pkg1", "location": "file:./pkg1"}]}
		]
	}`)
	t.Setenv("PROJECT_NAME", "analytics")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Projects, 1)
	assert.Equal(t, "analytics", cfg.Projects[0].Name)
}

func TestLoad_UnsetEnvVarFailsWithExactMessage(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"frozenConfig": false, "projects": [{"name": "${MISSING_VAR}", "packages": []}]}`)
	os.Unsetenv("MISSING_VAR")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, "Environment variable '${MISSING_VAR}' is not set in configuration file", err.Error())
}

func TestLoad_EmptyStringSubstitutionIsValid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"frozenConfig": false, "projects": [{"name": "${EMPTY_VAR}proj", "packages": []}]}`)
	t.Setenv("EMPTY_VAR", "")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "proj", cfg.Projects[0].Name)
}

func TestLoad_ObjectKeysNeverSubstituted(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"frozenConfig": false, "projects": [], "${NOT_A_REAL_VAR}": "literal"}`)
	_, err := Load(dir)
	require.NoError(t, err)
}

func TestLoad_NonMatchingTokensLeftLiteral(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"frozenConfig": false,
		"projects": [{"name": "${ BUCKET } and ${lowercase}", "packages": []}]
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "${ BUCKET } and ${lowercase}", cfg.Projects[0].Name)
}

func TestFrozenConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"frozenConfig": true, "projects": []}`)

	frozen, err := FrozenConfig(dir)
	require.NoError(t, err)
	assert.True(t, frozen)
}
