package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	ApiKey   string `json:"api_key"`
	Language string `json:"language_code"`
}

func TestReadWithLocalOverride(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(dir, "reviewsync.json5"),
		[]byte(`{api_key: "default", language_code: "en"}`),
		0644,
	)
	require.NoError(t, err)
	err = os.WriteFile(
		filepath.Join(dir, "reviewsync.local.json5"),
		[]byte(`{api_key: "override"}`),
		0644,
	)
	require.NoError(t, err)

	config, err := Read[testConfig](filepath.Join(dir, "reviewsync.json5"))
	require.NoError(t, err)
	require.Equal(t, "override", config.ApiKey)
	require.Equal(t, "en", config.Language)
}

func TestReadMissing(t *testing.T) {
	_, err := Read[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
