package repository

import (
	"context"

	"eoa-transfer-analyzer/internal/domain/entity"
)

// SearchRepository is the saved-search and annotation store. Writes
// replace the full set (no partial merge) and the store keeps only the
// most recent entries, so persistence is best effort by design.
type SearchRepository interface {
	ListSearches(ctx context.Context) ([]entity.SavedSearch, error)
	SaveSearch(ctx context.Context, search entity.SavedSearch) error
	DeleteSearch(ctx context.Context, address string) error

	GetAnnotation(ctx context.Context, address string) (*entity.Annotation, error)
	SaveAnnotation(ctx context.Context, annotation entity.Annotation) error

	// Clear wipes all persisted searches and annotations
	Clear(ctx context.Context) error
}
