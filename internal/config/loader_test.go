package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFS struct {
	home    string
	homeErr error
	files   map[string][]byte
}

func (m *mockFS) UserHomeDir() (string, error) {
	return m.home, m.homeErr
}

func (m *mockFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func TestLoadDefaultsWhenNoDotfile(t *testing.T) {
	l := NewLoaderWithFS(&mockFS{home: "/home/u", files: map[string][]byte{}})
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	l := NewLoaderWithFS(&mockFS{
		home: "/home/u",
		files: map[string][]byte{
			"/home/u/.config/pybench/config.json": []byte(`{"runtime":{"python_bin":"python3.12","exec_timeout_seconds":5}}`),
		},
	})
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "python3.12", cfg.Runtime.PythonBin)
	assert.Equal(t, 5, cfg.Runtime.ExecTimeoutSeconds)
	// Untouched keys keep their defaults.
	assert.Equal(t, 15, cfg.Runtime.ValidationTimeoutSeconds)
	assert.Equal(t, DefaultConfig().Workspace, cfg.Workspace)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	l := NewLoaderWithFS(&mockFS{
		home: "/home/u",
		files: map[string][]byte{
			"/home/u/.config/pybench/config.json": []byte(`{"runtime":`),
		},
	})
	_, err := l.Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	l := NewLoaderWithFS(&mockFS{
		home: "/home/u",
		files: map[string][]byte{
			"/home/u/.config/pybench/config.json": []byte(`{"runtime":{"exec_timeout_seconds":-1}}`),
		},
	})
	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec_timeout_seconds")
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python_bin")
	assert.Contains(t, err.Error(), "max_file_size")
	assert.Contains(t, err.Error(), "max_seed_files")
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
