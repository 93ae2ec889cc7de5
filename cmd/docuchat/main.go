// Command docuchat is the composition root: it wires configuration, the
// database, every service and engine, and the HTTP/WebSocket server, then
// serves until an interrupt or terminate signal arrives.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/codeready-toolchain/docuchat/pkg/api"
	"github.com/codeready-toolchain/docuchat/pkg/auth"
	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/conversation"
	"github.com/codeready-toolchain/docuchat/pkg/costguard"
	"github.com/codeready-toolchain/docuchat/pkg/database"
	"github.com/codeready-toolchain/docuchat/pkg/demo"
	"github.com/codeready-toolchain/docuchat/pkg/document"
	"github.com/codeready-toolchain/docuchat/pkg/events"
	"github.com/codeready-toolchain/docuchat/pkg/llm"
	"github.com/codeready-toolchain/docuchat/pkg/scheduler"
	"github.com/codeready-toolchain/docuchat/pkg/services"
	"github.com/codeready-toolchain/docuchat/pkg/session"
)

// openerBox is a scheduler.SessionOpener whose delegate is filled in after
// construction, so a Scheduler and the engine that owns it can each
// reference the other despite the construction-order cycle.
type openerBox struct {
	opener scheduler.SessionOpener
}

func (b *openerBox) Open(ctx context.Context) (*scheduler.Session, error) {
	return b.opener.Open(ctx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	log.Printf("Starting docuchat")
	log.Printf("Config Directory: %s", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	llmClient, err := llm.NewGRPCClient(cfg.LLM.SidecarAddr)
	if err != nil {
		log.Fatalf("Failed to dial LLM sidecar: %v", err)
	}
	defer llmClient.Close()

	documents := services.NewDocumentService(dbClient.Client)
	chunks := services.NewDocumentChunkService(dbClient.Client)
	conversations := services.NewConversationService(dbClient.Client)
	users := services.NewUserService(dbClient.Client)

	bus := events.NewBus(cfg.Registry.BusHighWaterMark)
	registry := events.NewRegistry(cfg.Registry.PerConnQueueCapacity, cfg.Registry.PerConnPutTimeout)
	registry.Attach(bus)

	guard := costguard.New(users, cfg.Cost)
	notifier := conversation.NewSlackNotifier(cfg.Slack, os.Getenv)
	resolver := auth.NewJWTResolver(cfg.Auth)
	demoService := demo.NewService(cfg.Retention, conversations)

	// Each engine is its own scheduler.SessionOpener, but a Scheduler needs
	// its opener at construction while the engine needs its scheduler at
	// construction too. openerBox breaks the cycle: the Scheduler gets a
	// stable indirection now, and the box is pointed at the real engine
	// once it exists.
	var convBox, docBox openerBox

	convSched := scheduler.New(&convBox, cfg.Scheduler)
	convEngine := conversation.New(dbClient.Client, bus, convSched, llmClient, guard, notifier, cfg.LLM, cfg.ExampleDocs)
	convBox.opener = convEngine

	docSched := scheduler.New(&docBox, cfg.Scheduler)
	docEngine := document.New(documents, chunks, bus, docSched)
	docBox.opener = docEngine

	convEngine.Register()
	docEngine.Register()

	bus.Initialize(ctx)
	convSched.Start(ctx)
	docSched.Start(ctx)
	demoService.Start(ctx)

	sessionHandlers := &session.Handlers{
		Bus:       bus,
		Registry:  registry,
		Documents: documents,
		Users:     users,
		Examples:  cfg.ExampleDocs,
		Resolver:  resolver,
		Demo:      demoService,
	}

	server := api.NewServer(cfg, dbClient, sessionHandlers, documents, chunks, users, resolver)

	addr := cfg.Server.ListenAddr
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP/WebSocket server listening on %s", addr)
		errCh <- server.StartWithListener(ln)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.TaskTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	demoService.Stop()
	if err := convSched.Shutdown(shutdownCtx); err != nil {
		slog.Error("conversation scheduler shutdown error", "error", err)
	}
	if err := docSched.Shutdown(shutdownCtx); err != nil {
		slog.Error("document scheduler shutdown error", "error", err)
	}
	if err := bus.Shutdown(shutdownCtx); err != nil {
		slog.Error("event bus shutdown error", "error", err)
	}

	log.Println("Shutdown complete")
}
