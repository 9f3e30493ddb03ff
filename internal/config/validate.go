package config

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDurationMinutes bounds a single recording request.
const MaxDurationMinutes = 480

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrent <= 0 {
		return errors.New("workflow.max_concurrent must be positive")
	}
	if c.Workflow.CaptureRetries < 1 {
		return errors.New("workflow.capture_retries must be at least 1")
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.capture_retry_delay":       c.Workflow.CaptureRetryDelay,
		"workflow.capture_retry_max_delay":   c.Workflow.CaptureRetryMaxDelay,
		"workflow.capture_grace_minutes":     c.Workflow.CaptureGraceMinutes,
		"workflow.completed_retention_hours": c.Workflow.CompletedRetentionHours,
	}); err != nil {
		return err
	}
	if c.Workflow.CaptureRetryMaxDelay < c.Workflow.CaptureRetryDelay {
		return errors.New("workflow.capture_retry_max_delay must be at least workflow.capture_retry_delay")
	}
	return nil
}

func (c *Config) validateTransfer() error {
	switch c.Transfer.Backend {
	case "scp":
		if strings.TrimSpace(c.Transfer.SSHHost) == "" {
			return errors.New("transfer.ssh_host must be set when transfer.backend is scp")
		}
		if strings.TrimSpace(c.Transfer.SSHUser) == "" {
			return errors.New("transfer.ssh_user must be set when transfer.backend is scp")
		}
		if c.Transfer.SSHPort <= 0 || c.Transfer.SSHPort > 65535 {
			return fmt.Errorf("transfer.ssh_port %d is out of range", c.Transfer.SSHPort)
		}
	case "s3":
		if strings.TrimSpace(c.Transfer.S3Bucket) == "" {
			return errors.New("transfer.s3_bucket must be set when transfer.backend is s3")
		}
		if strings.TrimSpace(c.Transfer.S3Region) == "" {
			return errors.New("transfer.s3_region must be set when transfer.backend is s3")
		}
	default:
		return fmt.Errorf("transfer.backend must be scp or s3, got %q", c.Transfer.Backend)
	}
	if strings.TrimSpace(c.Transfer.RemoteBase) == "" {
		return errors.New("transfer.remote_base must be set")
	}
	if c.Transfer.ConnectTimeout <= 0 {
		return errors.New("transfer.connect_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
