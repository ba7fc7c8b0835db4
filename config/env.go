package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const EnvPrefix = "XFORMEDIT_"

type Config struct {
	Addr       string `env:"ADDR" envDefault:":8000"`
	Stage      string `env:"STAGE"`
	Debug      bool   `env:"DEBUG"`
	Space      string `env:"SPACE" envDefault:"transform"`
	EditTarget string `env:"EDIT_TARGET" envDefault:"root"`
}

// Load reads XFORMEDIT_* variables on top of the defaults.
func Load() (Config, error) {
	return LoadEnvironment(nil)
}

// LoadEnvironment is Load with an explicit environment, nil meaning os.Environ.
func LoadEnvironment(environment map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environment}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, errors.Wrapf(err, "Failed to parse environment")
	}
	return cfg, nil
}

// Apply pushes the process switches of cfg into the package getters.
func (cfg Config) Apply() {
	SetDebugManipulators(cfg.Debug)
	if cfg.Space != "" {
		SetDefaultSpace(cfg.Space)
	}
}
