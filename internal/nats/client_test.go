package nats

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

func applyOptions(t *testing.T, opts []nats.Option) nats.Options {
	t.Helper()
	o := nats.GetDefaultOptions()
	for _, opt := range opts {
		require.NoError(t, opt(&o))
	}
	return o
}

func TestConnectOptions(t *testing.T) {
	o := applyOptions(t, connectOptions(Config{URL: "nats://localhost:4222", Token: "secret"}, logger.NewNop()))

	assert.Equal(t, clientName, o.Name)
	assert.Equal(t, -1, o.MaxReconnect)
	assert.Equal(t, "secret", o.Token)
	assert.False(t, o.Secure)
	assert.NotNil(t, o.DisconnectedErrCB)
	assert.NotNil(t, o.ReconnectedCB)
}

func TestConnectOptions_TLSNeedsAllFiles(t *testing.T) {
	base := len(connectOptions(Config{}, logger.NewNop()))

	partial := connectOptions(Config{CAFile: "ca.pem", CertFile: "cert.pem"}, logger.NewNop())
	assert.Len(t, partial, base)

	full := connectOptions(Config{CAFile: "ca.pem", CertFile: "cert.pem", KeyFile: "key.pem"}, logger.NewNop())
	assert.Len(t, full, base+2)
}

func TestClient_NilConnection(t *testing.T) {
	c := &Client{}
	assert.False(t, c.IsConnected())
	c.Close()
}
