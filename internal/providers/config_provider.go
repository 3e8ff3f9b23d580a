package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"certgen/internal/structures"
)

const (
	AppName = "CertGen"

	// DefaultSecret is publicly known; certificates signed with it can be forged.
	DefaultSecret         = "default-secret"
	DefaultChecksumLength = 16
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("store.filePath", "credentials.json")
	v.SetDefault("store.compress", false)
	v.SetDefault("store.compressionLevel", "default")
	v.SetDefault("store.lockTimeout", 5*time.Second)
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.keyPrefix", "certgen:")
	v.SetDefault("remote.dialTimeout", 500*time.Millisecond)
	v.SetDefault("integrity.secret", DefaultSecret)
	v.SetDefault("integrity.checksumLength", DefaultChecksumLength)
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.outputDir", "certificates")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 16)
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("metrics.enabled", false)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setDefaults(v)

	v.BindEnv("integrity.secret", "CERT_SECRET")
	v.BindEnv("logger.level", "CERTGEN_LOG_LEVEL")
	v.BindEnv("store.filePath", "CERTGEN_STORE_PATH")
	v.BindEnv("remote.enabled", "CERTGEN_REMOTE_ENABLED")
	v.BindEnv("remote.address", "CERTGEN_REMOTE_ADDRESS")
	v.BindEnv("remote.password", "CERTGEN_REMOTE_PASSWORD")
	v.BindEnv("metrics.enabled", "CERTGEN_METRICS_ENABLED")
	v.BindEnv("metrics.textfile", "CERTGEN_METRICS_TEXTFILE")

	if flags.ConfigPath != "" {
		filename := filepath.Base(flags.ConfigPath)
		v.AddConfigPath(filepath.Dir(flags.ConfigPath))
		v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", flags.ConfigPath, err)
		}
	}

	err := v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
