package repository

import (
	"context"

	"eoa-transfer-analyzer/internal/domain/entity"
)

// GraphRepository persists the partner graph produced by an analysis run.
// Each run replaces the previous graph for that address; persistence is
// best effort and failures never invalidate the computed analysis.
type GraphRepository interface {
	// SavePartnerGraph stores the analyzed address and its partner
	// relationships, replacing any prior graph for the address
	SavePartnerGraph(ctx context.Context, address string, partners []*entity.TransferPartner) error

	// GetPartnerConnections returns previously stored partner addresses
	// and volumes for an address
	GetPartnerConnections(ctx context.Context, address string, limit int) ([]*entity.GraphLink, error)
}
