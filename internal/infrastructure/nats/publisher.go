package nats

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/internal/config"
)

// Publisher sends lifecycle events on core NATS subjects of the form
// <prefix>.<event name>, e.g. auction.events.bid.accepted.
type Publisher struct {
	conn   *natslib.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials NATS. It keeps retrying in the background when the server
// is not reachable at boot, so a missing broker never blocks startup.
func Connect(cfg config.NATSConfig, appName string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := natslib.Connect(cfg.URL,
		natslib.Name(appName),
		natslib.RetryOnFailedConnect(true),
		natslib.MaxReconnects(-1),
		natslib.ReconnectWait(2*time.Second),
		natslib.DisconnectErrHandler(func(_ *natslib.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		natslib.ReconnectHandler(func(c *natslib.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("nats publisher ready", zap.String("url", cfg.URL), zap.String("prefix", cfg.SubjectPrefix))
	return NewPublisher(conn, cfg.SubjectPrefix, logger), nil
}

func NewPublisher(conn *natslib.Conn, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	subject := p.Subject(event.Name)
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.String("event_id", event.ID))
	return nil
}

// Subject returns the subject an event name is published on.
func (p *Publisher) Subject(name domain.EventName) string {
	if p.prefix == "" {
		return string(name)
	}
	return p.prefix + "." + string(name)
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close(ctx context.Context) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		p.logger.Warn("nats flush failed", zap.Error(err))
	}
	p.conn.Close()
	return nil
}
