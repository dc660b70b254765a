package provider

import (
	"time"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/spf13/cast"

	"github.com/rise-and-shine/cmdbus/cfgloader"
	"github.com/rise-and-shine/cmdbus/handler"
)

// Config is the symbolic bus configuration a host loads from YAML or builds from loose values.
type Config struct {
	// Inflector is a built-in inflector name. Unknown and empty names select class_name.
	Inflector string `yaml:"inflector" default:"class_name"`

	// Middleware lists registered middleware keys, outermost first.
	Middleware []string `yaml:"middleware" validate:"dive,required"`

	// Timeout configures the "timeout" middleware. Zero disables the deadline.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// Retry configures the "retry" middleware.
	Retry RetryConfig `yaml:"retry"`

	// ServiceName and ServiceVersion are stamped on every command by the "meta" middleware.
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

type RetryConfig struct {
	Attempts uint          `yaml:"attempts" default:"3"     validate:"gte=1"`
	Delay    time.Duration `yaml:"delay"    default:"100ms" validate:"gte=0"`
}

// DefaultConfig returns a Config with every default applied and no middleware.
// It panics if the default tags of Config are malformed.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(errx.Wrap(err))
	}
	return cfg
}

// FromMap builds a Config from loosely typed values, such as those a DI container holds.
// Recognised keys mirror the YAML names; "retry" is a nested map.
func FromMap(m map[string]any) (Config, error) {
	var cfg Config

	if v, ok := m["inflector"]; ok {
		s, err := cast.ToStringE(v)
		if err != nil {
			return cfg, fieldErr("inflector", err)
		}
		cfg.Inflector = s
	}
	if v, ok := m["middleware"]; ok {
		keys, err := cast.ToStringSliceE(v)
		if err != nil {
			return cfg, fieldErr("middleware", err)
		}
		cfg.Middleware = keys
	}
	if v, ok := m["timeout"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return cfg, fieldErr("timeout", err)
		}
		cfg.Timeout = d
	}
	if v, ok := m["retry"]; ok {
		r, err := cast.ToStringMapE(v)
		if err != nil {
			return cfg, fieldErr("retry", err)
		}
		if a, ok := r["attempts"]; ok {
			if cfg.Retry.Attempts, err = cast.ToUintE(a); err != nil {
				return cfg, fieldErr("retry.attempts", err)
			}
		}
		if d, ok := r["delay"]; ok {
			if cfg.Retry.Delay, err = cast.ToDurationE(d); err != nil {
				return cfg, fieldErr("retry.delay", err)
			}
		}
	}
	cfg.ServiceName = cast.ToString(m["service_name"])
	cfg.ServiceVersion = cast.ToString(m["service_version"])

	if err := cfg.normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// InflectorStrategy returns the strategy Inflector selects.
func (c Config) InflectorStrategy() handler.Strategy {
	return handler.ParseStrategy(c.Inflector)
}

// normalize fills defaults and validates.
func (c *Config) normalize() error {
	if err := defaults.Set(c); err != nil {
		return errx.Wrap(err)
	}
	return cfgloader.Validate(c)
}

func fieldErr(field string, err error) error {
	return errx.New(
		"[provider]: invalid config value: "+err.Error(),
		errx.WithCode(cfgloader.CodeConfigInvalid),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"field": field}),
	)
}
