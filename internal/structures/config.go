package structures

import "time"

type LoggerConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" mapstructure:"mode"`
	Dir   string `yaml:"dir" mapstructure:"dir"`
}

type StoreConfig struct {
	FilePath         string        `yaml:"filePath" mapstructure:"filePath" validate:"required"`
	Compress         bool          `yaml:"compress" mapstructure:"compress"`
	CompressionLevel string        `yaml:"compressionLevel" mapstructure:"compressionLevel" validate:"in:fastest,default,better,best"`
	LockTimeout      time.Duration `yaml:"lockTimeout" mapstructure:"lockTimeout"`
}

// RemoteConfig describes the optional redis-backed record store.
type RemoteConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Address     string        `yaml:"address" mapstructure:"address"`
	Username    string        `yaml:"username" mapstructure:"username"`
	Password    string        `yaml:"password" mapstructure:"password"`
	DB          int           `yaml:"db" mapstructure:"db"`
	KeyPrefix   string        `yaml:"keyPrefix" mapstructure:"keyPrefix"`
	DialTimeout time.Duration `yaml:"dialTimeout" mapstructure:"dialTimeout"`
}

type IntegrityConfig struct {
	Secret         string `yaml:"secret" mapstructure:"secret"`
	ChecksumLength int    `yaml:"checksumLength" mapstructure:"checksumLength"`
}

type RenderConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	OutputDir    string `yaml:"outputDir" mapstructure:"outputDir"`
	TemplatePath string `yaml:"templatePath" mapstructure:"templatePath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Size    int           `yaml:"size" mapstructure:"size"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Logger    LoggerConfig    `yaml:"logger" mapstructure:"logger"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Remote    RemoteConfig    `yaml:"remote" mapstructure:"remote"`
	Integrity IntegrityConfig `yaml:"integrity" mapstructure:"integrity"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}
