package config

// Config holds all application configuration values. Defaults are set
// in DefaultConfig() and can be overridden via dotfile. Values in the
// config file override defaults, including explicit zero values;
// missing keys keep their defaults.
type Config struct {
	Runtime   RuntimeConfig   `json:"runtime"`
	Workspace WorkspaceConfig `json:"workspace"`
}

type RuntimeConfig struct {
	// PythonBin is the interpreter used for the sandboxed worker.
	PythonBin string `json:"python_bin"` // Default: "python3"

	// Timeouts, in seconds.
	InitTimeoutSeconds       int `json:"init_timeout_seconds"`       // Default: 60
	ExecTimeoutSeconds       int `json:"exec_timeout_seconds"`       // Default: 30
	ValidationTimeoutSeconds int `json:"validation_timeout_seconds"` // Default: 15

	// MaxOutputBytes caps captured stdout/stderr per run.
	MaxOutputBytes int64 `json:"max_output_bytes"` // Default: 1 MiB
}

type WorkspaceConfig struct {
	MaxFileSize  int64 `json:"max_file_size"`  // Default: 20 MiB
	MaxSeedFiles int   `json:"max_seed_files"` // Default: 256
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			PythonBin:                "python3",
			InitTimeoutSeconds:       60,
			ExecTimeoutSeconds:       30,
			ValidationTimeoutSeconds: 15,
			MaxOutputBytes:           1 * 1024 * 1024,
		},
		Workspace: WorkspaceConfig{
			MaxFileSize:  20 * 1024 * 1024,
			MaxSeedFiles: 256,
		},
	}
}
