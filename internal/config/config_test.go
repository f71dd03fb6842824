package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaultsNeedToken(t *testing.T) {
	_, err := Load(newViper(), "controller")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token")
}

func TestLoadControllerSection(t *testing.T) {
	v := newViper()
	v.Set("controller.token", "secret")
	v.Set("controller.retry.initial_backoff", "100ms")

	cfg, err := Load(v, "controller", "channels")

	require.NoError(t, err)
	assert.Equal(t, "localhost:50051", cfg.Controller.Address)
	assert.Equal(t, 100*time.Millisecond, cfg.Controller.Retry.InitialBackoff)
	assert.Equal(t, 4, cfg.Controller.Retry.MaxAttempts)
	assert.Equal(t, "atomic.channel", cfg.Channels.SubjectPrefix)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ATOMIC_CONTROLLER_TOKEN", "from-env")
	v := newViper()
	ConfigureEnv(v)

	cfg, err := Load(v, "controller")

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Controller.Token)
}

func TestRetryAttemptsBounded(t *testing.T) {
	v := newViper()
	v.Set("controller.token", "secret")
	v.Set("controller.retry.max_attempts", 9)

	_, err := Load(v, "controller")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxAttempts")
}

func TestInvalidLogLevel(t *testing.T) {
	v := newViper()
	v.Set("log.level", "chatty")

	_, err := Load(v)

	assert.Error(t, err)
}

func TestUnknownSection(t *testing.T) {
	_, err := Load(newViper(), "database")

	assert.Error(t, err)
}

func TestPermissionsFromEnvList(t *testing.T) {
	t.Setenv("ATOMIC_OPERATOR_PERMISSIONS", "atomic.cloud.command.cloud,atomic.cloud.command.dispose")
	v := newViper()
	ConfigureEnv(v)

	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, []string{"atomic.cloud.command.cloud", "atomic.cloud.command.dispose"}, cfg.Operator.Permissions)
}
