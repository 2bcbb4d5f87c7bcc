package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_ExpandsEnvOverDefaults(t *testing.T) {
	t.Setenv("PROPINDEX_TEST_NAME", "vault")
	p := writeConfig(t, "name: ${PROPINDEX_TEST_NAME}\nport: ${PROPINDEX_TEST_PORT:-9090}\n")

	cfg := sample{Extra: "kept"}
	require.NoError(t, Load(p, &cfg))
	assert.Equal(t, sample{Name: "vault", Port: 9090, Extra: "kept"}, cfg)
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeConfig(t, "port: 0\n")
	err := Load(p, &sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_ParseError(t *testing.T) {
	p := writeConfig(t, "port: [\n")
	err := Load(p, &sample{Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := sample{Port: 8080}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	require.NoError(t, err)
	assert.False(t, read)
	assert.Equal(t, 8080, cfg.Port)

	_, err = LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &sample{})
	assert.Error(t, err, "defaults are still validated")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PROPINDEX_SET", "x")
	t.Setenv("PROPINDEX_EMPTY", "")
	assert.Equal(t, "x", ExpandEnv("${PROPINDEX_SET:-y}"))
	assert.Equal(t, "y", ExpandEnv("${PROPINDEX_EMPTY:-y}"))
	assert.Equal(t, "", ExpandEnv("$PROPINDEX_UNSET_VAR"))
	assert.Equal(t, "a-x", ExpandEnv("a-$PROPINDEX_SET"))
}
