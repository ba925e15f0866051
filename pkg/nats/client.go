package nats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"
)

// connect creates a new NATS connection and a JetStream context on it.
// onClosed runs once the connection is closed for good, after every other
// connection handler.
func connect(lggr logger.SugaredLogger, name string, serverURLs []string, onClosed func()) (*nats.Conn, nats.JetStreamContext, error) {
	options := []nats.Option{
		// Connection settings
		nats.ReconnectWait(1 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectBufSize(8 * 1024 * 1024), // 8MB
		// Timeouts and keepalive
		nats.PingInterval(5 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.Name(name),
		// Connection handlers for various NATS events
		nats.ConnectHandler(func(nc *nats.Conn) {
			lggr.Infow("NATS connection established", "server_id", nc.ConnectedServerId(), "server_url", nc.ConnectedUrl())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lggr.Infow("NATS connection reconnected", "server_id", nc.ConnectedServerId(), "server_url", nc.ConnectedUrl(), "total_reconnects", nc.Reconnects)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err == nil {
				lggr.Infow("NATS connection disconnected", "server_url", nc.ConnectedUrl(), "total_reconnects", nc.Reconnects)
				return
			}
			lggr.Errorw("NATS connection disconnected with error", "server_url", nc.ConnectedUrl(), "total_reconnects", nc.Reconnects, "err", err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			lggr.Infow("NATS connection closed", "server_url", nc.ConnectedUrl())
			onClosed()
		}),
	}

	nc, err := nats.Connect(strings.Join(serverURLs, ","), options...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS connection: %w", err)
	}

	js, err := nc.JetStream(nats.MaxWait(5 * time.Second))
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}

// ensureStream creates the stream capturing subjects unless it already
// exists.
func ensureStream(js nats.JetStreamContext, name, subjects string, dedupeWindow time.Duration) error {
	_, err := js.StreamInfo(name)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, nats.ErrStreamNotFound):
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   []string{subjects},
		Storage:    nats.FileStorage,
		Duplicates: dedupeWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}
