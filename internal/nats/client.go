// Package nats publishes task events to NATS JetStream.
package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

const clientName = "taskform-bot"

// Config holds NATS connection configuration. TLS is used only when all
// three files are set.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

func (c Config) tls() bool {
	return c.CAFile != "" && c.CertFile != "" && c.KeyFile != ""
}

// Client is a publish-only JetStream connection.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// Connect dials NATS and opens a JetStream context.
func Connect(cfg Config, log *logger.Logger) (*Client, error) {
	nc, err := nats.Connect(cfg.URL, connectOptions(cfg, log)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{conn: nc, js: js}, nil
}

// connectOptions keeps reconnecting forever; task events published while
// disconnected are buffered by the client.
func connectOptions(cfg Config, log *logger.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.tls() {
		opts = append(opts,
			nats.RootCAs(cfg.CAFile),
			nats.ClientCert(cfg.CertFile, cfg.KeyFile),
		)
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Close flushes pending publishes and closes the connection.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
