package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/domain/repository"
	"eoa-transfer-analyzer/internal/infrastructure/config"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// document is the on-disk schema. Every write replaces the whole
// document; the version field allows future format migration.
type document struct {
	SchemaVersion int                          `json:"schema_version"`
	Searches      []entity.SavedSearch         `json:"searches"`
	Annotations   map[string]entity.Annotation `json:"annotations"`
}

// SearchStore is a file-backed SearchRepository. Persistence is best
// effort: a missing or unreadable file behaves like an empty store.
type SearchStore struct {
	path          string
	maxSearches   int
	schemaVersion int
	logger        *logger.Logger
	mu            sync.Mutex
}

// NewSearchStore creates a store at the configured path
func NewSearchStore(cfg *config.StorageConfig, logger *logger.Logger) repository.SearchRepository {
	maxSearches := cfg.MaxSearches
	if maxSearches <= 0 {
		maxSearches = 20
	}
	return &SearchStore{
		path:          cfg.Path,
		maxSearches:   maxSearches,
		schemaVersion: cfg.SchemaVersion,
		logger:        logger.WithComponent("search-store"),
	}
}

// ListSearches returns the saved searches, most recently used first
func (s *SearchStore) ListSearches(_ context.Context) ([]entity.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	sort.SliceStable(doc.Searches, func(i, j int) bool {
		return doc.Searches[i].LastUsed.After(doc.Searches[j].LastUsed)
	})
	return doc.Searches, nil
}

// SaveSearch upserts one search, evicting the least recently used entry
// beyond the cap
func (s *SearchStore) SaveSearch(_ context.Context, search entity.SavedSearch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	search.Address = strings.ToLower(search.Address)
	doc := s.read()

	kept := doc.Searches[:0]
	for _, existing := range doc.Searches {
		if existing.Address != search.Address {
			kept = append(kept, existing)
		}
	}
	doc.Searches = append(kept, search)

	sort.SliceStable(doc.Searches, func(i, j int) bool {
		return doc.Searches[i].LastUsed.After(doc.Searches[j].LastUsed)
	})
	if len(doc.Searches) > s.maxSearches {
		doc.Searches = doc.Searches[:s.maxSearches]
	}

	return s.write(doc)
}

// DeleteSearch removes one search by address
func (s *SearchStore) DeleteSearch(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address = strings.ToLower(address)
	doc := s.read()
	kept := doc.Searches[:0]
	for _, existing := range doc.Searches {
		if existing.Address != address {
			kept = append(kept, existing)
		}
	}
	doc.Searches = kept
	return s.write(doc)
}

// GetAnnotation returns the annotation for an address, nil when absent
func (s *SearchStore) GetAnnotation(_ context.Context, address string) (*entity.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	if a, ok := doc.Annotations[strings.ToLower(address)]; ok {
		return &a, nil
	}
	return nil, nil
}

// SaveAnnotation upserts one annotation
func (s *SearchStore) SaveAnnotation(_ context.Context, annotation entity.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	annotation.Address = strings.ToLower(annotation.Address)
	doc := s.read()
	doc.Annotations[annotation.Address] = annotation
	return s.write(doc)
}

// Clear wipes all persisted state
func (s *SearchStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.empty())
}

func (s *SearchStore) empty() *document {
	return &document{
		SchemaVersion: s.schemaVersion,
		Searches:      []entity.SavedSearch{},
		Annotations:   map[string]entity.Annotation{},
	}
}

// read loads the document, degrading to an empty store on any problem.
// A schema version from the future is treated as unreadable rather than
// guessed at.
func (s *SearchStore) read() *document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.empty()
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("Corrupt search store, starting empty", zap.Error(err))
		return s.empty()
	}
	if doc.SchemaVersion > s.schemaVersion {
		s.logger.Warn("Search store written by a newer schema, starting empty",
			zap.Int("found", doc.SchemaVersion),
			zap.Int("supported", s.schemaVersion))
		return s.empty()
	}
	if doc.Annotations == nil {
		doc.Annotations = map[string]entity.Annotation{}
	}
	if doc.Searches == nil {
		doc.Searches = []entity.SavedSearch{}
	}
	return &doc
}

// write replaces the whole document atomically via a temp file rename
func (s *SearchStore) write(doc *document) error {
	doc.SchemaVersion = s.schemaVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal search store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write search store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace search store: %w", err)
	}
	return nil
}
