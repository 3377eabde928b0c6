// Package config loads runtime configuration for the FoodShare CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables (FOODSHARE_*), after an optional dotenv file
//     selected with -e or -env (default ".env" when present).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   backend base URL
//	-i int      online status check interval (seconds)
//	-d string   data directory
//	-l string   log level
//	-m string   metrics listen address
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "backend_url": "http://localhost:5000",
//	  "online_check_interval": "3s",
//	  "identity_mode": "rest",
//	  "identity_api_key": "..."
//	}
package config
