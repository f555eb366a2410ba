// Package config loads runtime configuration for the authctl CLI.
//
// Sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags -a (endpoint) and -t (timeout, seconds).
//
// JSON durations use timex.Duration, so "10s" and integer nanoseconds both
// work:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s"
//	}
package config
