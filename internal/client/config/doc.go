// Package config loads runtime configuration for the gophauth CLI.
//
// Sources, in order of precedence (later wins):
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the gophauth server
//	-t int      per-request timeout (seconds)
//
// JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:5555",
//	  "request_timeout": "10s"
//	}
package config
