// Package cfgloader loads YAML configuration, applies defaults and validates it.
package cfgloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rise-and-shine/cmdbus/logger"
	"github.com/rise-and-shine/cmdbus/mask"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"

	defaultDir = "./config"

	CodeConfigInvalid = "CONFIG_INVALID"
)

// Load reads the YAML file at path into a T. ${VAR} references are expanded from the
// environment, `default` tags fill missing fields and `validate` tags are checked.
func Load[T any](path string, opts ...Option) (T, error) {
	var config T
	if reflect.ValueOf(&config).Elem().Kind() == reflect.Pointer {
		return config, configErr("arg config must not be a pointer", nil)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, configErr("config file not found", errx.D{"path": path})
	}
	if err != nil {
		return config, errx.Wrap(err)
	}

	config, err = Parse[T](data)
	if err != nil {
		return config, err
	}

	if !buildOptions(opts).Silent {
		logger.Named("cfgloader").With("path", path, "config", mask.Fields(config)).Info("config loaded")
	}
	return config, nil
}

// Parse is Load for YAML that is already in memory.
func Parse[T any](data []byte) (T, error) {
	var config T

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return config, configErr("failed to unmarshal config: "+err.Error(), nil)
	}

	if err := defaults.Set(&config); err != nil {
		return config, configErr("failed to set default values: "+err.Error(), nil)
	}

	if err := Validate(&config); err != nil {
		return config, err
	}
	return config, nil
}

// Validate checks the `validate` tags of config and names every failing field.
func Validate(config any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return configErr(err.Error(), nil)
	}

	failed := make([]string, 0, len(errs))
	for _, fe := range errs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		failed = append(failed, fmt.Sprintf("%s: %s", fe.Namespace(), tag))
	}
	return configErr("invalid fields -> "+strings.Join(failed, ", "), nil)
}

// MustLoad loads ./config/${ENVIRONMENT}.yaml after reading .env, and exits the process
// when anything fails.
func MustLoad[T any](opts ...Option) T {
	_ = godotenv.Load()

	log := logger.Named("cfgloader")

	env := os.Getenv("ENVIRONMENT")
	if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
		log.Error("ENVIRONMENT env variable is not set or invalid. Choices are: production, staging, dev, local, test")
		os.Exit(1)
	}

	path := filepath.Join(buildOptions(opts).Dir, env+".yaml")
	config, err := Load[T](path, opts...)
	if err != nil {
		log.Errorx(err)
		os.Exit(1)
	}
	return config
}

func configErr(msg string, details errx.D) error {
	if details == nil {
		details = errx.D{}
	}
	return errx.New(
		"[cfgloader]: "+msg,
		errx.WithCode(CodeConfigInvalid),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}
