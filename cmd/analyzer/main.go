// cmd/analyzer/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"wbs-analyzer/internal/agents"
	awsclients "wbs-analyzer/internal/common/aws"
	"wbs-analyzer/internal/common/config"
	"wbs-analyzer/internal/common/database"
	"wbs-analyzer/internal/common/logger"
	"wbs-analyzer/internal/common/observability"
	"wbs-analyzer/internal/llm"
	"wbs-analyzer/internal/notify"
	"wbs-analyzer/internal/pipeline"
	"wbs-analyzer/internal/retrieval"
	"wbs-analyzer/internal/service"
	"wbs-analyzer/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	reportPath := pflag.String("report", "-", "path to the report text file, - for stdin")
	attachmentsPath := pflag.String("attachments", "", "optional path to extracted attachment text")
	reportID := pflag.String("report-id", "", "external report identifier")
	quick := pflag.Bool("quick", false, "run the single-call triage instead of the full pipeline")
	pflag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting analyzer...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry (optional) ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Host != "" {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Warn("postgres unavailable, results will not be persisted", zap.Error(err))
			pg = nil
		} else {
			defer pg.Close()
			zapLog.Info("PostgreSQL connected successfully")
		}
	}

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Warn("elasticsearch unavailable, running without retrieval", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Redis with retry (optional) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 3, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, retrieval cache disabled", zap.Error(err))
			redis = nil
		} else {
			defer redis.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Assemble the pipeline ---
	completer := llm.NewClient(cfg.LLM)
	runner := agents.NewRunner(completer, log, cfg.LLM)
	coordinator := agents.NewCoordinator(runner, log, cfg.Pipeline)
	quickAnalyzer := agents.NewQuickAnalyzer(runner)

	var retriever service.ContextRetriever
	if esClient != nil {
		var cache *retrieval.Cache
		if redis != nil {
			cache = retrieval.NewCache(redis.Client, time.Duration(cfg.Retrieval.CacheTTLMins)*time.Minute)
		}
		retriever = retrieval.NewRetriever(esClient.Client, cache, log, cfg.Retrieval)
	}

	var store service.ResultStore
	if pg != nil {
		store = storage.NewStore(pg.DB, log)
	}

	var notifier service.EscalationNotifier
	if cfg.Notifications.AWS.SES.Enabled || cfg.Notifications.AWS.SNS.Enabled {
		var sesClient notify.SESService
		var snsClient notify.SNSService
		if cfg.Notifications.AWS.SES.Enabled {
			sesClient, err = awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
		}
		if cfg.Notifications.AWS.SNS.Enabled {
			snsClient, err = awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
		}
		notifier = notify.NewNotifier(cfg.Notifications, log, sesClient, snsClient)
	}

	svc := service.NewAnalyzerService(log, coordinator, quickAnalyzer, retriever, store, notifier, obs)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("Health/Metrics server listening on " + addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Read the report ---
	reportText, err := readInput(*reportPath)
	if err != nil {
		zapLog.Fatal("failed to read report", zap.Error(err))
	}

	attachmentsText := ""
	if *attachmentsPath != "" {
		attachmentsText, err = readInput(*attachmentsPath)
		if err != nil {
			zapLog.Fatal("failed to read attachments", zap.Error(err))
		}
	}

	// --- Run ---
	exitCode := 0
	if *quick {
		result, err := svc.QuickAnalyze(ctx, reportText)
		if err != nil {
			zapLog.Error("quick analysis failed", zap.Error(err))
			exitCode = 1
		}
		printJSON(result)
	} else {
		result, err := svc.Analyze(ctx, pipeline.AnalysisRequest{
			ReportID:        *reportID,
			ReportText:      reportText,
			AttachmentsText: attachmentsText,
		})
		if err != nil {
			zapLog.Error("analysis failed", zap.Error(err))
			exitCode = 1
		}
		printJSON(result)
	}

	zapLog.Info("Analyzer finished")
	if exitCode != 0 {
		zapLog.Sync()
		os.Exit(exitCode)
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(data))
}
