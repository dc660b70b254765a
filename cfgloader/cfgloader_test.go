package cfgloader_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/cmdbus/cfgloader"
)

type testConfig struct {
	Name    string        `yaml:"name"    validate:"required"`
	Port    int           `yaml:"port"    default:"8080"`
	Timeout time.Duration `yaml:"timeout" default:"5s"`
	Token   string        `yaml:"token"   mask:"true"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("CMDBUS_TEST_TOKEN", "s3cret")

	path := writeFile(t, "name: billing\ntoken: ${CMDBUS_TEST_TOKEN}\n")

	cfg, err := cfgloader.Load[testConfig](path, cfgloader.WithSilent())
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "s3cret", cfg.Token)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{name: "invalid yaml", path: func(t *testing.T) string { return writeFile(t, "name: [unterminated") }},
		{name: "validation", path: func(t *testing.T) string { return writeFile(t, "port: 1\n") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cfgloader.Load[testConfig](tc.path(t), cfgloader.WithSilent())
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, cfgloader.CodeConfigInvalid))
		})
	}
}

func TestLoad_PointerType(t *testing.T) {
	_, err := cfgloader.Load[*testConfig](writeFile(t, "name: x\n"), cfgloader.WithSilent())
	require.Error(t, err)
}

func TestParse_ValidationNamesField(t *testing.T) {
	_, err := cfgloader.Parse[testConfig]([]byte("port: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "testConfig.Name: required")
}
