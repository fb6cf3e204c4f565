// Package main provides the meet operator HTTP API service: entry intake,
// payment review, heat generation, bib assignment, check-in, and reports.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trackmeet/engine/internal/aliasing"
	"github.com/trackmeet/engine/internal/api"
	"github.com/trackmeet/engine/internal/bibs"
	"github.com/trackmeet/engine/internal/canonicalization"
	"github.com/trackmeet/engine/internal/checkin"
	"github.com/trackmeet/engine/internal/entries"
	"github.com/trackmeet/engine/internal/heats"
	"github.com/trackmeet/engine/internal/notify"
	"github.com/trackmeet/engine/internal/operator"
	"github.com/trackmeet/engine/internal/payments"
	"github.com/trackmeet/engine/internal/reports"
	"github.com/trackmeet/engine/internal/roster"
	"github.com/trackmeet/engine/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "meetd"

	defaultOutboxInterval  = 5 * time.Second
	defaultOutboxBatchSize = 50
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("starting meet operator service",
		slog.String("service", name),
		slog.String("version", version),
	)

	conn, err := storage.NewConnection(storage.LoadConfig())
	if err != nil {
		logger.Error("failed to connect to storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	deps := buildDependencies(conn, logger)

	server := api.NewServer(&serverConfig, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runOutboxPublisher(ctx, conn, logger)

	if err := server.Start(); err != nil {
		logger.Error("server failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("meet operator service stopped")
}

// buildDependencies wires each domain service to its Postgres-backed store.
func buildDependencies(conn *storage.Connection, logger *slog.Logger) api.Dependencies {
	now := time.Now

	catalogStore := storage.NewCatalogStore(conn)
	entryStore := storage.NewEntryStore(conn)
	paymentStore := storage.NewPaymentStore(conn)
	heatStore := storage.NewHeatStore(conn)
	bibStore := storage.NewBibStore(conn)
	checkinStore := storage.NewCheckinStore(conn)
	rosterStore := storage.NewRosterStore(conn)
	reportStore := storage.NewReportStore(conn)
	operatorStore := storage.NewOperatorKeyStore(conn)

	aliases, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load alias config, continuing with built-in tables", slog.String("error", err.Error()))

		aliases = &aliasing.Config{}
	}

	validator := roster.NewValidator(
		canonicalization.NewSexResolver(aliases.SexAliases),
		canonicalization.NewGradeResolver(aliases.GradeAliases),
		canonicalization.NewPrefectureResolver(aliases.PrefectureAliases),
		canonicalization.NewNationalityResolver(aliases.NationalityAliases),
	)

	return api.Dependencies{
		Conn:     conn,
		Entries:  entries.NewService(entryStore, catalogStore, now),
		Payments: payments.NewService(paymentStore, entryStore, catalogStore, now),
		Heats:    heats.NewService(heatStore, entryStore, catalogStore, now),
		Bibs:     bibs.NewService(catalogStore, heatStore, bibStore),
		Checkin:  checkin.NewService(checkinStore, now),
		Roster:   roster.NewImporter(rosterStore, validator),
		Reports:  reports.NewBuilder(reportStore, now),
		Operator: operator.NewService(operatorStore, now),
	}
}

// runOutboxPublisher drains the notification outbox onto Kafka at a fixed
// interval until ctx is cancelled. It logs and exits quietly if no broker
// is configured, since a single-node deployment may not run one.
func runOutboxPublisher(ctx context.Context, conn *storage.Connection, logger *slog.Logger) {
	brokers := strings.Split(os.Getenv("TRACKMEET_KAFKA_BROKERS"), ",")
	topic := os.Getenv("TRACKMEET_KAFKA_TOPIC")

	if len(brokers) == 0 || brokers[0] == "" || topic == "" {
		logger.Info("outbox publisher disabled: TRACKMEET_KAFKA_BROKERS/TRACKMEET_KAFKA_TOPIC not set")

		return
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close kafka writer", slog.String("error", err.Error()))
		}
	}()

	outboxStore := storage.NewOutboxStore(conn)
	publisher := notify.NewPublisher(outboxStore, writer, logger, time.Now)

	logger.Info("starting outbox publisher",
		slog.String("topic", topic),
		slog.Duration("interval", defaultOutboxInterval),
	)

	publisher.Run(ctx, defaultOutboxInterval, defaultOutboxBatchSize)
}
