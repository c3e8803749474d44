package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration wraps time.Duration so JSON can carry either "30s" style strings
// or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It is seeded
// from the current Config, so keys absent from the file keep their values.
type JsonConfig struct {
	DatabasePath        string   `json:"database_path"`
	RemoteURL           string   `json:"remote_url"`
	RemoteAuthToken     string   `json:"remote_auth_token"`
	RemoteTimeout       Duration `json:"remote_timeout"`
	OnlineCheckInterval Duration `json:"online_check_interval"`
	ProbeTimeout        Duration `json:"probe_timeout"`
	PushInterval        Duration `json:"push_interval"`
	PushStartupDelay    Duration `json:"push_startup_delay"`
	PushBatchSize       int      `json:"push_batch_size"`
	ShutdownTimeout     Duration `json:"shutdown_timeout"`
	BackupDir           string   `json:"backup_dir"`
	BackupKeep          int      `json:"backup_keep"`
	BackupMaxAge        Duration `json:"backup_max_age"`
	BackupOnShutdown    bool     `json:"backup_on_shutdown"`
	S3                  struct {
		Endpoint  string `json:"endpoint"`
		Region    string `json:"region"`
		Bucket    string `json:"bucket"`
		Prefix    string `json:"prefix"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"s3"`
	Log struct {
		File   string `json:"file"`
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
}

// parseJson overlays cfg with the JSON file at path.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fromJson(cfg, &jc)
	return nil
}

func toJson(c *Config) JsonConfig {
	var jc JsonConfig
	jc.DatabasePath = c.DatabasePath
	jc.RemoteURL = c.RemoteURL
	jc.RemoteAuthToken = c.RemoteAuthToken
	jc.RemoteTimeout = Duration{c.RemoteTimeout}
	jc.OnlineCheckInterval = Duration{c.OnlineCheckInterval}
	jc.ProbeTimeout = Duration{c.ProbeTimeout}
	jc.PushInterval = Duration{c.PushInterval}
	jc.PushStartupDelay = Duration{c.PushStartupDelay}
	jc.PushBatchSize = c.PushBatchSize
	jc.ShutdownTimeout = Duration{c.ShutdownTimeout}
	jc.BackupDir = c.BackupDir
	jc.BackupKeep = c.BackupKeep
	jc.BackupMaxAge = Duration{c.BackupMaxAge}
	jc.BackupOnShutdown = c.BackupOnShutdown
	jc.S3.Endpoint = c.S3.Endpoint
	jc.S3.Region = c.S3.Region
	jc.S3.Bucket = c.S3.Bucket
	jc.S3.Prefix = c.S3.Prefix
	jc.S3.AccessKey = c.S3.AccessKey
	jc.S3.SecretKey = c.S3.SecretKey
	jc.Log.File = c.Log.File
	jc.Log.Level = c.Log.Level
	jc.Log.Format = c.Log.Format
	return jc
}

func fromJson(c *Config, jc *JsonConfig) {
	c.DatabasePath = jc.DatabasePath
	c.RemoteURL = jc.RemoteURL
	c.RemoteAuthToken = jc.RemoteAuthToken
	c.RemoteTimeout = jc.RemoteTimeout.Duration
	c.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	c.ProbeTimeout = jc.ProbeTimeout.Duration
	c.PushInterval = jc.PushInterval.Duration
	c.PushStartupDelay = jc.PushStartupDelay.Duration
	c.PushBatchSize = jc.PushBatchSize
	c.ShutdownTimeout = jc.ShutdownTimeout.Duration
	c.BackupDir = jc.BackupDir
	c.BackupKeep = jc.BackupKeep
	c.BackupMaxAge = jc.BackupMaxAge.Duration
	c.BackupOnShutdown = jc.BackupOnShutdown
	c.S3 = S3Config{
		Endpoint:  jc.S3.Endpoint,
		Region:    jc.S3.Region,
		Bucket:    jc.S3.Bucket,
		Prefix:    jc.S3.Prefix,
		AccessKey: jc.S3.AccessKey,
		SecretKey: jc.S3.SecretKey,
	}
	c.Log = LogConfig{File: jc.Log.File, Level: jc.Log.Level, Format: jc.Log.Format}
}
