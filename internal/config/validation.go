package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values that would break the
// runtime at a distance. Collects every violation, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Runtime.PythonBin == "" {
		errs = append(errs, errors.New("runtime.python_bin cannot be empty"))
	}
	if c.Runtime.InitTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("runtime.init_timeout_seconds must be positive, got %d", c.Runtime.InitTimeoutSeconds))
	}
	if c.Runtime.ExecTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("runtime.exec_timeout_seconds must be positive, got %d", c.Runtime.ExecTimeoutSeconds))
	}
	if c.Runtime.ValidationTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("runtime.validation_timeout_seconds must be positive, got %d", c.Runtime.ValidationTimeoutSeconds))
	}
	if c.Runtime.MaxOutputBytes <= 0 {
		errs = append(errs, fmt.Errorf("runtime.max_output_bytes must be positive, got %d", c.Runtime.MaxOutputBytes))
	}
	if c.Workspace.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("workspace.max_file_size must be positive, got %d", c.Workspace.MaxFileSize))
	}
	if c.Workspace.MaxSeedFiles <= 0 {
		errs = append(errs, fmt.Errorf("workspace.max_seed_files must be positive, got %d", c.Workspace.MaxSeedFiles))
	}

	return errors.Join(errs...)
}
