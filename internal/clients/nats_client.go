package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/config"
	"shield-backend/internal/events"
	"shield-backend/internal/metrics"
)

const defaultSubjectPrefix = "shield.transfers"

// msgPublisher is the part of *nats.Conn the client publishes through.
type msgPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSClient NATS client
type NATSClient struct {
	conn          *nats.Conn
	pub           msgPublisher
	subjectPrefix string
	logger        *logrus.Logger
}

// NewNATSClient Create NATS client
func NewNATSClient(cfg config.NATSConfig, logger *logrus.Logger) (*NATSClient, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	connectTimeout := 10 * time.Second
	if cfg.Timeout > 0 {
		connectTimeout = time.Duration(cfg.Timeout) * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("shield-backend"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("[NATS] disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("[NATS] reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS failed: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	logger.WithFields(logrus.Fields{
		"url":     cfg.URL,
		"timeout": connectTimeout.String(),
	}).Info("[NATS] connected")

	return newNATSClient(conn, conn, cfg.SubjectPrefix, logger), nil
}

func newNATSClient(conn *nats.Conn, pub msgPublisher, prefix string, logger *logrus.Logger) *NATSClient {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &NATSClient{conn: conn, pub: pub, subjectPrefix: prefix, logger: logger}
}

// TransferSubject = <prefix>.<status>
func (c *NATSClient) TransferSubject(event *events.TransferEvent) string {
	return c.subjectPrefix + "." + string(event.Status)
}

// PublishTransferEvent publishes a transfer state change.
func (c *NATSClient) PublishTransferEvent(ctx context.Context, event *events.TransferEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transfer event failed: %w", err)
	}

	subject := c.TransferSubject(event)
	if err := c.pub.Publish(subject, data); err != nil {
		metrics.NATSMessagesPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publish transfer event failed: %w", err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject, "ok").Inc()

	c.logger.WithFields(logrus.Fields{
		"subject":     subject,
		"transfer_id": event.TransferID,
	}).Debug("[NATS] transfer event published")
	return nil
}

// Close connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Drain()
	}
}

// GetConnection Get NATS connection
func (c *NATSClient) GetConnection() *nats.Conn {
	return c.conn
}
