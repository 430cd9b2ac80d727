package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/viper"

	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

const (
	// EnvPrefix prefixes every environment override, e.g. SESSIONKIT_HOME.
	EnvPrefix = "SESSIONKIT"
	// BaseDirName is the default home directory under the user's home.
	BaseDirName = ".sessionkit"

	maxOneTimeCount = 100
)

// Viper keys.
const (
	KeyHome         = "home"
	KeyLogLevel     = "log_level"
	KeyScryptN      = "keystore.scrypt_n"
	KeyScryptR      = "keystore.scrypt_r"
	KeyScryptP      = "keystore.scrypt_p"
	KeyOneTimeCount = "prekeys.one_time_count"
)

// Config is the resolved runtime configuration.
type Config struct {
	Home     string
	LogLevel string
	Keystore KeystoreConfig
	PreKeys  PreKeyConfig
}

// KeystoreConfig holds the scrypt costs for sealing key files.
type KeystoreConfig struct {
	ScryptN int
	ScryptR int
	ScryptP int
}

// PreKeyConfig controls pre-key generation.
type PreKeyConfig struct {
	OneTimeCount int
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Home:     defaultHome(),
		LogLevel: "",
		Keystore: KeystoreConfig{ScryptN: 1 << 15, ScryptR: 8, ScryptP: 1},
		PreKeys:  PreKeyConfig{OneTimeCount: 10},
	}
}

func defaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return BaseDirName
	}
	return filepath.Join(dir, BaseDirName)
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyHome, d.Home)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyScryptN, d.Keystore.ScryptN)
	v.SetDefault(KeyScryptR, d.Keystore.ScryptR)
	v.SetDefault(KeyScryptP, d.Keystore.ScryptP)
	v.SetDefault(KeyOneTimeCount, d.PreKeys.OneTimeCount)
}

// Load resolves the configuration held by v. When cfgFile is empty,
// config.yaml in the home directory is read if present; a named cfgFile
// must exist.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(v.GetString(KeyHome))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, oops.In("config").
				With("file", cfgFile).
				Wrapf(err, "reading config file")
		}
	} else {
		log.WithField("file", v.ConfigFileUsed()).Debug("Using config file")
	}

	cfg := Config{
		Home:     v.GetString(KeyHome),
		LogLevel: v.GetString(KeyLogLevel),
		Keystore: KeystoreConfig{
			ScryptN: v.GetInt(KeyScryptN),
			ScryptR: v.GetInt(KeyScryptR),
			ScryptP: v.GetInt(KeyScryptP),
		},
		PreKeys: PreKeyConfig{OneTimeCount: v.GetInt(KeyOneTimeCount)},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the stores and services cannot use.
func (c Config) Validate() error {
	n := c.Keystore.ScryptN
	switch {
	case c.Home == "":
		return oops.In("config").Errorf("home directory is empty")
	case n <= 1 || n&(n-1) != 0:
		return oops.In("config").With("scrypt_n", n).Errorf("keystore.scrypt_n must be a power of two greater than 1")
	case c.Keystore.ScryptR < 1 || c.Keystore.ScryptP < 1:
		return oops.In("config").Errorf("keystore.scrypt_r and scrypt_p must be positive")
	case c.PreKeys.OneTimeCount < 0 || c.PreKeys.OneTimeCount > maxOneTimeCount:
		return oops.In("config").
			With("one_time_count", c.PreKeys.OneTimeCount).
			Errorf("prekeys.one_time_count must be between 0 and %d", maxOneTimeCount)
	}
	return nil
}
