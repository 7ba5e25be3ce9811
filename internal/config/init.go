package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MAILWRIGHT_SERVER_PORT.
const EnvPrefix = "MAILWRIGHT"

// ConfigFileEnv names the environment variable that points at a config file.
const ConfigFileEnv = "MAILWRIGHT_CONFIG_FILE"

var envKeyReplacer = strings.NewReplacer(".", "_")

// Init wires v to its configuration sources.
//
// Loading priority (highest to lowest):
//  1. cfgFile, usually from the --config flag
//  2. the MAILWRIGHT_CONFIG_FILE environment variable
//  3. .mailwright.yml in the current directory
//
// A missing or unreadable default file is not an error; an explicitly named
// file that cannot be read is. Init returns the file actually used, if any.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	explicit := true
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigFileEnv); envConfigFile != "" {
		v.SetConfigFile(envConfigFile)
	} else {
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".mailwright")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit {
			return "", err
		}
		return "", nil
	}
	return v.ConfigFileUsed(), nil
}
