package config

import "time"

// Config holds runtime settings for the repairdesk desktop process.
//
// Units: every interval/timeout is a time.Duration.
type Config struct {
	DatabasePath string

	RemoteURL       string
	RemoteAuthToken string
	RemoteTimeout   time.Duration

	OnlineCheckInterval time.Duration
	ProbeTimeout        time.Duration

	PushInterval     time.Duration
	PushStartupDelay time.Duration
	PushBatchSize    int
	ShutdownTimeout  time.Duration

	BackupDir        string
	BackupKeep       int
	BackupMaxAge     time.Duration
	BackupOnShutdown bool

	S3  S3Config
	Log LogConfig
}

// S3Config describes the optional offsite copy of local backups. Uploads are
// disabled while Bucket is empty.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether offsite upload is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

type LogConfig struct {
	File   string
	Level  string
	Format string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "repairdesk.db"
	c.RemoteTimeout = 15 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.ProbeTimeout = 3 * time.Second
	c.PushInterval = 5 * time.Minute
	c.PushStartupDelay = 10 * time.Second
	c.PushBatchSize = 50
	c.ShutdownTimeout = 10 * time.Second
	c.BackupDir = "backups"
	c.BackupKeep = 3
	c.BackupMaxAge = 7 * 24 * time.Hour
	c.BackupOnShutdown = true
	c.S3.Region = "us-east-1"
	c.S3.Prefix = "repairdesk/"
	c.Log.Level = "info"
	c.Log.Format = "text"
}

// LoadConfig constructs a Config from defaults and then overlays the JSON file
// at path, if path is not empty.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
