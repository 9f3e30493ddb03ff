// Package config loads, validates, and normalizes the TOML configuration that
// drives the daemon: directories, catalog file locations, the concurrency
// ceiling, capture retry policy, transfer backend settings, and log output.
//
// Load applies defaults first so a missing file still yields a runnable
// configuration, then expands ~ in every path field before validation.
package config
