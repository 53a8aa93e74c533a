package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/domain/repository"
	"eoa-transfer-analyzer/internal/domain/service"
	"eoa-transfer-analyzer/internal/infrastructure/config"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// AnalysisApplicationService implements AnalysisService by composing the
// pure pipeline stages around the network boundary
type AnalysisApplicationService struct {
	client     service.TransferClient
	aggregator *service.PartnerAggregator
	anomalies  *service.AnomalyDetector
	collector  *service.GasRecordCollector
	gas        *service.GasAnalyzer
	patterns   *service.PatternAnalyzer
	clusters   *service.ClusterAnalyzer
	graphs     *service.GraphBuilder
	classifier *service.AccountClassifier
	graphRepo  repository.GraphRepository
	publisher  service.AlertPublisher
	cfg        *config.Config
	logger     *logger.Logger

	mu    sync.Mutex
	memo  map[string]*entity.AnalysisSummary
}

// NewAnalysisApplicationService creates the orchestrating service
func NewAnalysisApplicationService(
	client service.TransferClient,
	aggregator *service.PartnerAggregator,
	anomalies *service.AnomalyDetector,
	collector *service.GasRecordCollector,
	gas *service.GasAnalyzer,
	patterns *service.PatternAnalyzer,
	clusters *service.ClusterAnalyzer,
	graphs *service.GraphBuilder,
	classifier *service.AccountClassifier,
	graphRepo repository.GraphRepository,
	publisher service.AlertPublisher,
	cfg *config.Config,
	logger *logger.Logger,
) service.AnalysisService {
	return &AnalysisApplicationService{
		client:     client,
		aggregator: aggregator,
		anomalies:  anomalies,
		collector:  collector,
		gas:        gas,
		patterns:   patterns,
		clusters:   clusters,
		graphs:     graphs,
		classifier: classifier,
		graphRepo:  graphRepo,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.WithComponent("analysis-service"),
		memo:       make(map[string]*entity.AnalysisSummary),
	}
}

// AnalyzeAddress runs the full pipeline for one address. Every stage is
// a pure function of the fetched transfer set, so results are memoized
// on (address, transfer-set fingerprint) for the process lifetime.
func (s *AnalysisApplicationService) AnalyzeAddress(ctx context.Context, address string) (*entity.AnalysisSummary, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, fmt.Errorf("%w: empty", service.ErrInvalidAddress)
	}

	s.logger.Info("Starting address analysis", zap.String("address", address))

	page, err := s.client.FetchTransfers(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transfers: %w", err)
	}

	key := memoKey(address, page)
	s.mu.Lock()
	if cached, ok := s.memo[key]; ok {
		s.mu.Unlock()
		s.logger.Debug("Returning memoized analysis", zap.String("address", address))
		return cached, nil
	}
	s.mu.Unlock()

	partners := s.aggregator.Aggregate(page)
	for _, p := range partners {
		p.Anomalies = s.anomalies.Detect(p.Transactions)
	}

	records := s.aggregator.MergeRecords(page)
	patternAnalysis := s.patterns.Analyze(records)
	gasRecords := s.collector.Collect(ctx, records)
	gasAnalysis := s.gas.Analyze(gasRecords)
	clusterAnalysis := s.clusters.Analyze(partners)

	summary := &entity.AnalysisSummary{
		Address:     address,
		Network:     s.cfg.App.Network,
		AnalyzedAt:  time.Now().UTC(),
		Partners:    partners,
		Patterns:    patternAnalysis,
		Gas:         gasAnalysis,
		Clusters:    clusterAnalysis,
		Graph:       s.graphs.BuildTransferGraph(address, partners),
		Tree:        s.graphs.BuildPartnerTree(address, partners),
		Activity:    s.graphs.BuildActivityGrid(records),
		IsContract:  s.classifier.IsContract(ctx, address),
		RecordCount: len(records),
	}

	s.persistGraph(ctx, summary)
	s.publishAlert(ctx, summary)

	s.mu.Lock()
	s.memo[key] = summary
	s.mu.Unlock()

	s.logger.Info("Completed address analysis",
		zap.String("address", address),
		zap.Int("partners", len(partners)),
		zap.Int("records", len(records)),
		zap.Int("patterns", len(patternAnalysis.Patterns)),
		zap.Int("clusters", len(clusterAnalysis.Clusters)))

	return summary, nil
}

// persistGraph stores the partner graph when Neo4J is enabled. Failures
// are logged and swallowed; persistence never invalidates an analysis.
func (s *AnalysisApplicationService) persistGraph(ctx context.Context, summary *entity.AnalysisSummary) {
	if !s.cfg.Neo4J.Enabled || s.graphRepo == nil {
		return
	}
	if err := s.graphRepo.SavePartnerGraph(ctx, summary.Address, summary.Partners); err != nil {
		s.logger.Error("Failed to persist partner graph",
			zap.String("address", summary.Address),
			zap.Error(err))
	}
}

// publishAlert emits an anomaly alert when partners carry anomaly flags
// or the risk band reaches Medium. Publishing is best effort.
func (s *AnalysisApplicationService) publishAlert(ctx context.Context, summary *entity.AnalysisSummary) {
	if s.publisher == nil {
		return
	}

	anomalous := 0
	for _, p := range summary.Partners {
		if p.Anomalies.HasAnomalies() {
			anomalous++
		}
	}

	risk := summary.Patterns.Risk
	elevated := risk.Level == entity.RiskMedium || risk.Level == entity.RiskHigh
	if anomalous == 0 && !elevated {
		return
	}

	types := make([]string, 0, len(summary.Patterns.Patterns))
	for _, p := range summary.Patterns.Patterns {
		types = append(types, string(p.Type))
	}

	alert := &entity.AnomalyAlert{
		Address:        summary.Address,
		Network:        summary.Network,
		RiskLevel:      risk.Level,
		RiskScore:      risk.Score,
		AnomalousCount: anomalous,
		PatternTypes:   types,
		DetectedAt:     summary.AnalyzedAt,
	}
	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		s.logger.Error("Failed to publish anomaly alert",
			zap.String("address", summary.Address),
			zap.Error(err))
	}
}

// memoKey fingerprints the fetched transfer set so a changed history
// invalidates the cached analysis
func memoKey(address string, page *entity.TransferPage) string {
	hashes := make([]string, 0, len(page.Sent)+len(page.Received))
	for _, t := range page.Sent {
		hashes = append(hashes, "s:"+t.Hash)
	}
	for _, t := range page.Received {
		hashes = append(hashes, "r:"+t.Hash)
	}
	sort.Strings(hashes)

	h := sha256.New()
	for _, hash := range hashes {
		h.Write([]byte(hash))
	}
	return address + ":" + hex.EncodeToString(h.Sum(nil))
}
