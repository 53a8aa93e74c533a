package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/infrastructure/config"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher publishes anomaly alert events over NATS JetStream,
// falling back to core NATS when JetStream is unavailable
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	config *config.NATSConfig
	logger *logger.Logger
}

// NewNATSPublisher creates a new NATS publisher
func NewNATSPublisher(cfg *config.NATSConfig, logger *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		config: cfg,
		logger: logger.WithComponent("nats-publisher"),
	}
}

// Connect connects to the NATS server and ensures the alert stream
func (p *NATSPublisher) Connect(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	p.logger.Info("Connecting to NATS server", zap.String("url", p.config.URL))

	opts := []nats.Option{
		nats.Name("eoa-transfer-analyzer"),
		nats.Timeout(p.config.ConnectTimeout),
		nats.ReconnectWait(p.config.ReconnectDelay),
		nats.MaxReconnects(p.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			p.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(p.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		p.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return nil
	}
	p.js = js

	// Ensure the alert stream exists; an already-existing stream is fine
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     p.config.StreamName,
		Subjects: []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		p.logger.Warn("Failed to ensure alert stream", zap.Error(err))
	}

	p.logger.Info("Successfully connected to NATS",
		zap.String("stream", p.config.StreamName))
	return nil
}

// Disconnect drains and closes the connection
func (p *NATSPublisher) Disconnect() error {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Drain()
	}
	return nil
}

// PublishAlert publishes one anomaly alert. With NATS disabled this is a
// silent no-op so the pipeline runs identically without a broker.
func (p *NATSPublisher) PublishAlert(ctx context.Context, alert *entity.AnomalyAlert) error {
	if !p.config.Enabled || p.conn == nil {
		return nil
	}

	subject := fmt.Sprintf("%s.anomaly.%s", p.config.SubjectPrefix, alert.Address)
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if p.js != nil {
		if _, err := p.js.Publish(subject, payload, nats.Context(ctx)); err != nil {
			return fmt.Errorf("failed to publish alert: %w", err)
		}
	} else if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Info("Published anomaly alert",
		zap.String("address", alert.Address),
		zap.String("risk_level", string(alert.RiskLevel)),
		zap.Int("anomalous_partners", alert.AnomalousCount))
	return nil
}
