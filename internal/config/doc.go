// Package config handles configuration loading for summon-share.
//
// # Configuration File
//
// Locate picks the file to load (in order):
//
//  1. Path from SUMMON_SHARE_CONFIG environment variable
//  2. ./config.yaml, ./config.yml, ./config.toml
//
// Files ending in .toml are decoded as TOML; everything else as YAML.
// When no file is found the command line tools fall back to Default().
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${SUMMON_SHARE_DB}"
//
// A .env file in the working directory is loaded with LoadEnvFile before
// expansion. Variables already present in the environment win.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	database:
//	  busy_timeout: "5s"
package config
