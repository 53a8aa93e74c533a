package database

import (
	"context"
	"fmt"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/domain/repository"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Neo4JGraphRepository implements GraphRepository over Neo4J
type Neo4JGraphRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JGraphRepository creates a new Neo4J graph repository
func NewNeo4JGraphRepository(client *Neo4JClient, logger *logger.Logger) repository.GraphRepository {
	return &Neo4JGraphRepository{
		client: client,
		logger: logger.WithComponent("neo4j-graph-repo"),
	}
}

// SavePartnerGraph replaces the stored partner graph for an address with
// the freshly analyzed one
func (r *Neo4JGraphRepository) SavePartnerGraph(ctx context.Context, address string, partners []*entity.TransferPartner) error {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	analyzedAt := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Drop the previous graph for this address; each run is a full
		// replacement, not a merge
		if _, err := tx.Run(ctx, `
			MATCH (a:Address {address: $address})-[r:TRANSFERRED_WITH]-()
			DELETE r
		`, map[string]interface{}{"address": address}); err != nil {
			return nil, err
		}

		if _, err := tx.Run(ctx, `
			MERGE (a:Address {address: $address})
			SET a.analyzed_at = datetime($analyzed_at),
			    a.partner_count = $partner_count
		`, map[string]interface{}{
			"address":       address,
			"analyzed_at":   analyzedAt,
			"partner_count": len(partners),
		}); err != nil {
			return nil, err
		}

		for _, p := range partners {
			if _, err := tx.Run(ctx, `
				MERGE (p:Address {address: $partner})
				WITH p
				MATCH (a:Address {address: $address})
				MERGE (a)-[r:TRANSFERRED_WITH]->(p)
				SET r.total_sent = $total_sent,
				    r.total_received = $total_received,
				    r.total_volume = $total_volume,
				    r.tx_count = $tx_count,
				    r.has_anomalies = $has_anomalies,
				    r.updated_at = datetime($analyzed_at)
			`, map[string]interface{}{
				"address":        address,
				"partner":        p.Address,
				"total_sent":     p.TotalSent.String(),
				"total_received": p.TotalReceived.String(),
				"total_volume":   p.TotalVolume().String(),
				"tx_count":       len(p.Transactions),
				"has_anomalies":  p.Anomalies.HasAnomalies(),
				"analyzed_at":    analyzedAt,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("failed to save partner graph: %w", err)
	}

	r.logger.Info("Saved partner graph",
		zap.String("address", address),
		zap.Int("partners", len(partners)))
	return nil
}

// GetPartnerConnections returns stored partner links for an address,
// highest volume first
func (r *Neo4JGraphRepository) GetPartnerConnections(ctx context.Context, address string, limit int) ([]*entity.GraphLink, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (a:Address {address: $address})-[r:TRANSFERRED_WITH]->(p:Address)
			RETURN p.address, r.total_sent, r.total_received, r.tx_count
			ORDER BY r.total_volume DESC
			LIMIT $limit
		`, map[string]interface{}{"address": address, "limit": limit})
		if err != nil {
			return nil, err
		}

		var links []*entity.GraphLink
		for records.Next(ctx) {
			values := records.Record().Values
			sent := parseStoredDecimal(values[1])
			received := parseStoredDecimal(values[2])

			links = append(links, &entity.GraphLink{
				Source:  address,
				Target:  values[0].(string),
				Value:   sent.Add(received),
				TxCount: int(values[3].(int64)),
			})
		}
		return links, records.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get partner connections: %w", err)
	}
	return result.([]*entity.GraphLink), nil
}

func parseStoredDecimal(v interface{}) decimal.Decimal {
	s, ok := v.(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
