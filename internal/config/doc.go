// Package config handles loading, parsing, and validation of
// application configuration and feed definitions from files and
// environment variables.
package config
