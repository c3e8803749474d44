package config

import (
	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagConfig       = "config"
	FlagDatabase     = "db"
	FlagRemote       = "remote"
	FlagRemoteToken  = "remote-token"
	FlagPushInterval = "push-interval"
	FlagBatchSize    = "batch-size"
	FlagBackupDir    = "backup-dir"
	FlagLogFile      = "log-file"
	FlagLogLevel     = "log-level"
)

// RegisterFlags adds the configuration flags to fs. Defaults shown in help
// come from LoadDefaults; the values are only applied by ApplyFlags when the
// user sets them explicitly.
//
// Supported flags (short forms in parentheses):
//
//	--config (-c) string      JSON config file
//	--db (-d) string          local database path
//	--remote (-r) string      remote store URL
//	--remote-token string     remote auth token
//	--push-interval duration  periodic push interval
//	--batch-size int          rows per table per push batch
//	--backup-dir string       default backup directory
//	--log-file string         log file (rotated); empty logs to stderr
//	--log-level string        debug|info|warn|error
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.StringP(FlagDatabase, "d", d.DatabasePath, "local database path")
	fs.StringP(FlagRemote, "r", "", "remote store URL (libsql://, postgres://, file:)")
	fs.String(FlagRemoteToken, "", "remote store auth token")
	fs.Duration(FlagPushInterval, d.PushInterval, "periodic push interval")
	fs.Int(FlagBatchSize, d.PushBatchSize, "rows per table per push batch")
	fs.String(FlagBackupDir, d.BackupDir, "default backup directory")
	fs.String(FlagLogFile, "", "log file path (stderr when empty)")
	fs.String(FlagLogLevel, d.Log.Level, "log level (debug|info|warn|error)")
}

// ApplyFlags overlays cfg with every flag in fs that was explicitly set.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagDatabase:
			cfg.DatabasePath, err = fs.GetString(f.Name)
		case FlagRemote:
			cfg.RemoteURL, err = fs.GetString(f.Name)
		case FlagRemoteToken:
			cfg.RemoteAuthToken, err = fs.GetString(f.Name)
		case FlagPushInterval:
			cfg.PushInterval, err = fs.GetDuration(f.Name)
		case FlagBatchSize:
			cfg.PushBatchSize, err = fs.GetInt(f.Name)
		case FlagBackupDir:
			cfg.BackupDir, err = fs.GetString(f.Name)
		case FlagLogFile:
			cfg.Log.File, err = fs.GetString(f.Name)
		case FlagLogLevel:
			cfg.Log.Level, err = fs.GetString(f.Name)
		}
	})
	return err
}

// Load resolves the full configuration from an already parsed flag set:
// defaults, then the --config file, then explicit flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyFlags(fs, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
