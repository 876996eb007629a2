package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/simpleg-eu/cp-core/internal/logger"
	"github.com/spf13/viper"
)

const (
	EnvProd = "production"
	EnvDev  = "development"
	EnvTest = "test"
)

// Config holds application configuration loaded from environment variables or config file.
type Config struct {
	AppEnv string `mapstructure:"app_env" default:"development" validate:"required"`
	Port   string `mapstructure:"port" default:"3000" validate:"required"`

	// Token validation
	JWKSURI           string        `mapstructure:"jwks_uri" validate:"required,url"`
	Issuers           []string      `mapstructure:"issuers" validate:"required,min=1,dive,required"`
	Audiences         []string      `mapstructure:"audiences" validate:"required,min=1,dive,required"`
	LenientAuthScheme bool          `mapstructure:"lenient_auth_scheme"`
	ClockSkew         time.Duration `mapstructure:"clock_skew" default:"0s"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout" default:"10s" validate:"gt=0"`

	// Remote configuration
	ConfigHost        string        `mapstructure:"config_host" validate:"omitempty,url"`
	ConfigStage       string        `mapstructure:"config_stage"`
	ConfigEnvironment string        `mapstructure:"config_environment"`
	ConfigComponent   string        `mapstructure:"config_component"`
	ConfigWorkingDir  string        `mapstructure:"config_working_dir" default:"/tmp/cp-core"`
	ConfigTimeout     time.Duration `mapstructure:"config_timeout" default:"30s"`

	// Security settings
	ConfigAccessToken         string `secret:"true" mapstructure:"config_access_token"`
	SecretsManagerAccessToken string `secret:"true" mapstructure:"secrets_manager_access_token"`

	// Logging
	LogLevel  string `mapstructure:"log_level" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	LogFormat string `mapstructure:"log_format" default:"text" validate:"oneof=text json"`
}

// Load loads configuration from config file and environment variables using viper.
func Load() *Config {
	cfg, err := load(viper.New(), true)
	if err != nil {
		logger.Warn("Could not unmarshal config", "error", err)
	}
	return cfg
}

// LoadFile loads configuration from an explicit file, then environment variables.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v, false)
}

func load(v *viper.Viper, search bool) (*Config, error) {
	cfg := Config{}

	v.AutomaticEnv()
	if search {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	// Set defaults for the config struct
	if err := defaults.Set(&cfg); err != nil {
		panic("failed to set struct defaults: " + err.Error())
	}

	// Bind env vars for each field
	typeOfCfg := reflect.TypeOf(cfg)
	for i := 0; i < typeOfCfg.NumField(); i++ {
		field := typeOfCfg.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		_ = v.BindEnv(key)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !search {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			logger.Error("Error read config file", "error", err)
		}
		logger.Warn("No config file found, using environment variables")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return &cfg, err
	}
	cfg.Issuers = splitList(cfg.Issuers)
	cfg.Audiences = splitList(cfg.Audiences)

	logger.Info("Loaded config", "config", cfg.String())

	return &cfg, nil
}

// splitList expands comma separated entries, as env vars arrive as one string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func Validate(cfg *Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}

// RemoteConfigEnabled reports whether a remote configuration host is set.
func (c *Config) RemoteConfigEnabled() bool {
	return c.ConfigHost != ""
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Name
		value := v.Field(i).Interface()
		if field.Tag.Get("secret") == "true" {
			value = "***REDACTED***"
		}
		sb.WriteString(name + ": " + toString(value))
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// toString converts interface{} to string for String
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return "[" + strings.Join(val, " ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
