package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"go.dedis.ch/tct/cli"
	"go.dedis.ch/tct/crypto"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config specifies the file format of config files.
type Config struct {
	DB       string `yaml:"db"`
	LogLevel string `yaml:"log-level"`
	Listen   string `yaml:"listen"`
	Hash     string `yaml:"hash"` // Algorithm used to derive commitments from data.

	level zerolog.Level
	hash  crypto.HashAlgorithm
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		DB:       "tct.db",
		LogLevel: "info",
		Listen:   "127.0.0.1:8080",
		Hash:     "sha256",
	}
}

// ReadConfig reads the configuration file. The fields that are not provided
// keep their default value.
func ReadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, xerrors.Errorf("failed to read config: %v", err)
	}

	parsed := DefaultConfig()

	err = yaml.UnmarshalStrict(raw, parsed)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse config: %v", err)
	}

	err = parsed.validate()
	if err != nil {
		return nil, err
	}

	return parsed, nil
}

// loadConfig reads the configuration file if any is given and applies the
// global flags on top of it.
func loadConfig(flags cli.Flags) (*Config, error) {
	config := DefaultConfig()

	if flags.Path("config") != "" {
		var err error
		config, err = ReadConfig(flags.Path("config"))
		if err != nil {
			return nil, err
		}
	}

	if flags.IsSet("db") {
		config.DB = flags.Path("db")
	}

	if flags.IsSet("log-level") {
		config.LogLevel = flags.String("log-level")
	}

	err := config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DB == "" {
		return xerrors.New("field not provided: db")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return xerrors.Errorf("invalid log-level: %v", err)
	}

	hash, err := crypto.ParseHashAlgorithm(c.Hash)
	if err != nil {
		return xerrors.Errorf("invalid hash: %v", err)
	}

	c.level = level
	c.hash = hash

	return nil
}
