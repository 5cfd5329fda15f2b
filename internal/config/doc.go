// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/bakery/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/bakery/config.cue on macOS, %APPDATA%\bakery\config.cue
// on Windows). The package provides type-safe configuration access and supports container
// engine selection, cache directory overrides, pull retry bounds, and UI settings.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
