package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ShadowFalcon24/atomic-cloud/internal/channel"
	"github.com/ShadowFalcon24/atomic-cloud/internal/config"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	return v
}

func TestRuntimeRejectsInvalidSection(t *testing.T) {
	_, err := NewRuntime(newViper(), "controller")

	assert.Error(t, err)
}

func TestGrantsFromConfig(t *testing.T) {
	v := newViper()
	v.Set("operator.name", "ops")
	v.Set("operator.permissions", []string{string(permission.CloudCommand)})
	rt, err := NewRuntime(v)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	grants := rt.Grants()

	assert.Equal(t, "ops", grants.Name)
	assert.True(t, permission.CloudCommand.Check(grants))
	assert.False(t, permission.DisposeCommand.Check(grants))
}

func TestLocalChannelsRoundTrip(t *testing.T) {
	v := newViper()
	v.Set("channels.sender", "cli")
	rt, err := NewRuntime(v, "channels")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	ctx := context.Background()

	m, err := rt.Channels(ctx)
	require.NoError(t, err)

	got := make(chan channel.Message, 1)
	m.RegisterHandler("chat", channel.HandlerFunc(func(msg channel.Message) { got <- msg }))
	_, err = m.Subscribe(ctx, "chat").Await(ctx)
	require.NoError(t, err)
	_, err = m.Publish(ctx, "chat", "hello").Await(ctx)
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.Equal(t, "hello", msg.Body)
		assert.Equal(t, "cli", msg.Sender)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPrivilegedDialsLazily(t *testing.T) {
	v := newViper()
	v.Set("controller.token", "secret")
	rt, err := NewRuntime(v, "controller")
	require.NoError(t, err)

	p, err := rt.Privileged()

	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.NoError(t, rt.Close(context.Background()))
}

func TestCloseLogsTeardownFailures(t *testing.T) {
	rt, err := NewRuntime(newViper())
	require.NoError(t, err)
	core, logs := observer.New(zap.WarnLevel)
	rt.Logger = zap.New(core)
	var order []string
	rt.onClose(func(context.Context) error {
		order = append(order, "first")
		return errors.New("drain nats")
	})
	rt.onClose(func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	err = rt.Close(context.Background())

	require.ErrorContains(t, err, "drain nats")
	assert.Equal(t, []string{"second", "first"}, order)
	entries := logs.FilterMessage("runtime teardown incomplete").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "drain nats")
	assert.NoError(t, rt.Close(context.Background()))
}
