package gwallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// DefaultEnvPrefix prefixes every environment variable read by [LoadConfig].
	DefaultEnvPrefix = "GWALLET"

	// EnvironmentProduction selects the production callback root keys.
	EnvironmentProduction = "production"
	// EnvironmentTesting selects the testing callback root keys.
	EnvironmentTesting = "testing"
)

// DefaultConfig holds the values used for unset keys.
var DefaultConfig = Config{
	APIURL:          ProductionURL,
	SaveURL:         SaveURL,
	Scopes:          []string{Scope},
	Environment:     EnvironmentProduction,
	RequestTimeout:  30 * time.Second,
	CallbackTimeout: 5 * time.Second,
	ImageTimeout:    5 * time.Second,
	PageSize:        DefaultPageSize,
}

// Config is the environment-driven configuration of the client and the
// inbound callback handlers.
type Config struct {
	APIURL          string        `json:"api_url,omitempty"          mapstructure:"api_url"`
	SaveURL         string        `json:"save_url,omitempty"         mapstructure:"save_url"`
	CredentialsFile string        `json:"credentials_file,omitempty" mapstructure:"credentials_file"`
	Scopes          []string      `json:"scopes,omitempty"           mapstructure:"scopes"`
	IssuerID        string        `json:"issuer_id,omitempty"        mapstructure:"issuer_id"`
	Environment     string        `json:"environment,omitempty"      mapstructure:"environment"`
	// SkipSignature turns callback signature checks off. Only an explicit
	// true disables them.
	SkipSignature   bool          `json:"skip_signature,omitempty"   mapstructure:"skip_signature"`
	RequestTimeout  time.Duration `json:"request_timeout,omitempty"  mapstructure:"request_timeout"`
	CallbackTimeout time.Duration `json:"callback_timeout,omitempty" mapstructure:"callback_timeout"`
	ImageTimeout    time.Duration `json:"image_timeout,omitempty"    mapstructure:"image_timeout"`
	PageSize        int           `json:"page_size,omitempty"        mapstructure:"page_size"`
}

// LoadConfig reads the configuration from GWALLET_* environment variables.
func LoadConfig() (*Config, error) {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	_ = v.BindEnv("api_url")
	v.SetDefault("api_url", DefaultConfig.APIURL)

	_ = v.BindEnv("save_url")
	v.SetDefault("save_url", DefaultConfig.SaveURL)

	_ = v.BindEnv("credentials_file")
	v.SetDefault("credentials_file", "")

	_ = v.BindEnv("scopes")
	v.SetDefault("scopes", DefaultConfig.Scopes)

	_ = v.BindEnv("issuer_id")
	v.SetDefault("issuer_id", "")

	// Callback verification
	_ = v.BindEnv("environment")
	v.SetDefault("environment", DefaultConfig.Environment)

	_ = v.BindEnv("skip_signature")
	v.SetDefault("skip_signature", false)

	// Timeouts
	_ = v.BindEnv("request_timeout")
	v.SetDefault("request_timeout", DefaultConfig.RequestTimeout)

	_ = v.BindEnv("callback_timeout")
	v.SetDefault("callback_timeout", DefaultConfig.CallbackTimeout)

	_ = v.BindEnv("image_timeout")
	v.SetDefault("image_timeout", DefaultConfig.ImageTimeout)

	_ = v.BindEnv("page_size")
	v.SetDefault("page_size", DefaultConfig.PageSize)

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	config := &Config{}
	if err := v.Unmarshal(config, viper.DecodeHook(decodeHooks)); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that have a closed set of choices.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvironmentProduction, EnvironmentTesting:
	default:
		return fmt.Errorf("environment %q: %w", c.Environment, ErrInvalidArgument)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page_size %d: %w", c.PageSize, ErrInvalidArgument)
	}
	return nil
}
