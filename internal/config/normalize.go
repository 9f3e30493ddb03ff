package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTransfer(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ShowsFile) == "" {
		c.Paths.ShowsFile = defaultShowsFile
	}
	if c.Paths.ShowsFile, err = expandPath(c.Paths.ShowsFile); err != nil {
		return fmt.Errorf("paths.shows_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StationsFile) == "" {
		c.Paths.StationsFile = defaultStationsFile
	}
	if c.Paths.StationsFile, err = expandPath(c.Paths.StationsFile); err != nil {
		return fmt.Errorf("paths.stations_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArtworkDir) != "" {
		if c.Paths.ArtworkDir, err = expandPath(c.Paths.ArtworkDir); err != nil {
			return fmt.Errorf("paths.artwork_dir: %w", err)
		}
	}
	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	if c.Server.APIBind == "" {
		c.Server.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTransfer() error {
	c.Transfer.Backend = strings.ToLower(strings.TrimSpace(c.Transfer.Backend))
	if c.Transfer.Backend == "" {
		c.Transfer.Backend = defaultTransferBackend
	}
	c.Transfer.RemoteBase = strings.TrimSpace(c.Transfer.RemoteBase)
	if c.Transfer.RemoteBase == "" {
		c.Transfer.RemoteBase = defaultRemoteBase
	}
	if c.Transfer.SSHPort == 0 {
		c.Transfer.SSHPort = defaultSSHPort
	}
	if c.Transfer.ConnectTimeout == 0 {
		c.Transfer.ConnectTimeout = defaultConnectTimeout
	}
	if strings.TrimSpace(c.Transfer.SSHKey) != "" {
		expanded, err := expandPath(c.Transfer.SSHKey)
		if err != nil {
			return fmt.Errorf("transfer.ssh_key: %w", err)
		}
		c.Transfer.SSHKey = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
