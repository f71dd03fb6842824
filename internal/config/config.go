package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ShadowFalcon24/atomic-cloud/internal/channel"
	"github.com/ShadowFalcon24/atomic-cloud/internal/logging"
)

const EnvPrefix = "ATOMIC"

type Config struct {
	Controller ControllerConfig `mapstructure:"controller"`
	Channels   ChannelsConfig   `mapstructure:"channels"`
	Log        logging.Config   `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Operator   OperatorConfig   `mapstructure:"operator"`
	Simulator  SimulatorConfig  `mapstructure:"simulator"`
}

type ControllerConfig struct {
	Address string        `mapstructure:"address" validate:"required,hostname_port"`
	Token   string        `mapstructure:"token" validate:"required"`
	TLS     bool          `mapstructure:"tls"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Retry   RetryConfig   `mapstructure:"retry"`
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=1"`
}

// RetryConfig feeds the gRPC retry policy; gRPC caps attempts at 5.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"min=1,max=5"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" validate:"gt=0"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" validate:"gte=1"`
}

type ChannelsConfig struct {
	// NatsURL selects the NATS broker; empty keeps channels in process.
	NatsURL        string `mapstructure:"nats_url" validate:"omitempty,url"`
	SubjectPrefix  string `mapstructure:"subject_prefix" validate:"required"`
	BacklogWarning int    `mapstructure:"backlog_warning" validate:"min=1"`
	Sender         string `mapstructure:"sender"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// OperatorConfig describes who is driving the CLI, for permission checks.
type OperatorConfig struct {
	Name        string   `mapstructure:"name"`
	Permissions []string `mapstructure:"permissions"`
	Operator    bool     `mapstructure:"operator"`
}

type SimulatorConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" validate:"required"`
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
	DBPath   string `mapstructure:"db_path"`
	NatsURL  string `mapstructure:"nats_url" validate:"omitempty,url"`
	Token    string `mapstructure:"token" validate:"required"`
	// StartupDelay simulates how long a scheduled server takes to boot.
	StartupDelay time.Duration `mapstructure:"startup_delay" validate:"gte=0"`
}

// SetDefaults registers every key with its default so env overrides
// resolve even when no config file mentions the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("controller.address", "localhost:50051")
	v.SetDefault("controller.token", "")
	v.SetDefault("controller.tls", false)
	v.SetDefault("controller.timeout", 10*time.Second)
	v.SetDefault("controller.retry.max_attempts", 4)
	v.SetDefault("controller.retry.initial_backoff", 200*time.Millisecond)
	v.SetDefault("controller.retry.max_backoff", 2*time.Second)
	v.SetDefault("controller.retry.backoff_multiplier", 2.0)
	v.SetDefault("controller.rate_limit", 50.0)
	v.SetDefault("controller.burst", 10)

	v.SetDefault("channels.nats_url", "")
	v.SetDefault("channels.subject_prefix", channel.DefaultSubjectPrefix)
	v.SetDefault("channels.backlog_warning", channel.DefaultBacklogWarning)
	v.SetDefault("channels.sender", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)
	v.SetDefault("tracing.enabled", false)

	v.SetDefault("operator.name", "")
	v.SetDefault("operator.permissions", []string{})
	v.SetDefault("operator.operator", false)

	v.SetDefault("simulator.grpc_addr", ":50051")
	v.SetDefault("simulator.http_addr", ":8080")
	v.SetDefault("simulator.db_path", "./data/badger")
	v.SetDefault("simulator.nats_url", "")
	v.SetDefault("simulator.token", "")
	v.SetDefault("simulator.startup_delay", 500*time.Millisecond)
}

// ConfigureEnv makes ATOMIC_CONTROLLER_TOKEN override controller.token and
// so on.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates the sections named in
// sections ("controller", "channels", "simulator"); log and tracing are
// always validated.
func Load(v *viper.Viper, sections ...string) (*Config, error) {
	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	targets := map[string]any{
		"controller": &cfg.Controller,
		"channels":   &cfg.Channels,
		"simulator":  &cfg.Simulator,
	}
	if err := validate.Struct(&cfg.Log); err != nil {
		return nil, describe("log", err)
	}
	for _, section := range sections {
		target, ok := targets[section]
		if !ok {
			return nil, fmt.Errorf("unknown configuration section %q", section)
		}
		if err := validate.Struct(target); err != nil {
			return nil, describe(section, err)
		}
	}
	return cfg, nil
}

func describe(section string, err error) error {
	var details strings.Builder
	fmt.Fprintf(&details, "invalid %s configuration:", section)
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			fmt.Fprintf(&details, "\n - %s: failed on '%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%s", details.String())
	}
	return fmt.Errorf("%s %w", details.String(), err)
}
