// Package config loads runtime configuration for repairdesk.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config / -c (see LoadConfig).
//  3. Command-line flags registered by RegisterFlags; only flags the user
//     actually set override earlier values (see ApplyFlags).
//
// # JSON schema
//
// Durations accept strings like "30s" or integer nanoseconds. Keys missing
// from the file keep their default:
//
//	{
//	  "database_path": "repairdesk.db",
//	  "remote_url": "libsql://shop-acme.turso.io",
//	  "remote_auth_token": "eyJhbGciOi...",
//	  "push_interval": "5m",
//	  "push_startup_delay": "10s",
//	  "backup_dir": "backups",
//	  "s3": {"bucket": "shop-backups", "endpoint": "http://127.0.0.1:9000"},
//	  "log": {"file": "repairdesk.log", "level": "info"}
//	}
//
// This package does not read environment variables.
package config
