package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "eoa-transfer-analyzer/internal/application/service"
	domain_service "eoa-transfer-analyzer/internal/domain/service"
	"eoa-transfer-analyzer/internal/infrastructure/blockchain"
	"eoa-transfer-analyzer/internal/infrastructure/config"
	"eoa-transfer-analyzer/internal/infrastructure/database"
	"eoa-transfer-analyzer/internal/infrastructure/logger"
	"eoa-transfer-analyzer/internal/infrastructure/messaging"
	"eoa-transfer-analyzer/internal/infrastructure/storage"
	httpapi "eoa-transfer-analyzer/internal/interfaces/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Create FX application
	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.Alchemy),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.Storage),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			blockchain.NewAlchemyClient,
			func(c *blockchain.AlchemyClient) domain_service.TransferClient { return c },
			func(c *blockchain.AlchemyClient) domain_service.ReceiptFetcher { return c },
			func(c *blockchain.AlchemyClient) domain_service.CodeFetcher { return c },
			database.NewNeo4JClient,
			database.NewNeo4JGraphRepository,
			messaging.NewNATSPublisher,
			func(p *messaging.NATSPublisher) domain_service.AlertPublisher { return p },
			storage.NewSearchStore,
		),

		// Domain services
		fx.Provide(
			domain_service.NewPartnerAggregator,
			func(cfg *config.Config) *domain_service.AnomalyDetector {
				return domain_service.NewAnomalyDetector(domain_service.AnomalyThresholds{
					LargeTransferSigma: cfg.Analysis.LargeTransferSigma,
					FrequencyCV:        cfg.Analysis.FrequencyCV,
					CashOutMultiple:    cfg.Analysis.CashOutMultiple,
				})
			},
			func(fetcher domain_service.ReceiptFetcher, cfg *config.Config, log *logger.Logger) *domain_service.GasRecordCollector {
				return domain_service.NewGasRecordCollector(fetcher, cfg.Alchemy.ReceiptConcurrency, log)
			},
			func(cfg *config.Config) *domain_service.GasAnalyzer {
				return domain_service.NewGasAnalyzer(domain_service.GasTipThresholds{
					LowEfficiencyPercent: cfg.Analysis.LowEfficiencyPercent,
					HighGasUnits:         cfg.Analysis.HighGasUnits,
					HighGasShare:         cfg.Analysis.HighGasShare,
					HourlyRatio:          cfg.Analysis.HourlyRatio,
					MinSeriesPoints:      domain_service.DefaultGasTipThresholds().MinSeriesPoints,
				})
			},
			domain_service.NewPatternAnalyzer,
			func(cfg *config.Config) *domain_service.ClusterAnalyzer {
				return domain_service.NewClusterAnalyzer(domain_service.ClusterThresholds{
					TemporalWindow:     cfg.Analysis.ClusterWindow,
					MinCoOccurrences:   cfg.Analysis.MinCoOccurrences,
					MinSharedBlocks:    cfg.Analysis.MinSharedBlocks,
					BehaviorSimilarity: cfg.Analysis.BehaviorSimilarity,
				})
			},
			domain_service.NewGraphBuilder,
			func(fetcher domain_service.CodeFetcher, log *logger.Logger) *domain_service.AccountClassifier {
				return domain_service.NewAccountClassifier(fetcher, log)
			},
		),

		// Application providers
		fx.Provide(
			app_service.NewAnalysisApplicationService,
			httpapi.NewServer,
		),

		// Lifecycle hooks
		fx.Invoke(startAnalyzer),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// startAnalyzer wires the optional backends and the HTTP server into the
// fx lifecycle
func startAnalyzer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	log *logger.Logger,
	client *blockchain.AlchemyClient,
	neo4jClient *database.Neo4JClient,
	publisher *messaging.NATSPublisher,
	server *httpapi.Server,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting transfer analyzer...",
				zap.String("network", cfg.App.Network),
				zap.Int("http_port", cfg.App.HTTPPort))

			if cfg.Neo4J.Enabled {
				log.Info("Connecting to Neo4J database")
				if err := neo4jClient.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
			}

			if err := publisher.Connect(ctx); err != nil {
				// Alerting is best effort; the pipeline works without it
				log.Warn("NATS unavailable, continuing without alerts", zap.Error(err))
			}

			server.Start()

			log.Info("Transfer analyzer started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping transfer analyzer...")

			if err := server.Stop(ctx); err != nil {
				log.Error("Failed to stop HTTP server", zap.Error(err))
			}
			if cfg.Neo4J.Enabled {
				if err := neo4jClient.Close(ctx); err != nil {
					log.Error("Failed to close Neo4J connection", zap.Error(err))
				}
			}
			if err := publisher.Disconnect(); err != nil {
				log.Error("Failed to disconnect from NATS", zap.Error(err))
			}
			client.Close()
			return nil
		},
	})
}
