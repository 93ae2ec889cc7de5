// Package demo implements Demo Isolation (§4.8): the periodic safety-net
// sweep that deletes orphaned demo conversations, and the eager
// per-connection cleanup a session handler runs on disconnect.
package demo

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

// Service periodically deletes demo conversations whose owning connection
// is long gone. The per-disconnect cleanup (CleanupConnection) is the
// primary mechanism (§4.8); this sweep is the fallback for connections
// that vanish without a clean close (socket fault, crashed client).
type Service struct {
	config        *config.RetentionConfig
	conversations *services.ConversationService

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new demo sweep service.
func NewService(cfg *config.RetentionConfig, conversations *services.ConversationService) *Service {
	return &Service{config: cfg, conversations: conversations}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Demo sweep started", "demo_ttl", s.config.DemoTTL, "interval", s.config.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Demo sweep stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.DemoTTL)
	stale, err := s.conversations.ListDemoOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Demo sweep: list failed", "error", err)
		return
	}
	var deleted int
	for _, conv := range stale {
		if err := s.conversations.Delete(ctx, conv.ID); err != nil {
			slog.Error("Demo sweep: delete failed", "conversation_id", conv.ID, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		slog.Info("Demo sweep: deleted stale demo conversations", "count", deleted)
	}
}

// CleanupConnection eagerly deletes every demo conversation tagged with
// connectionID. Called by the conversation-scope session handler when its
// socket closes (§4.3, §4.8); the periodic sweep above is only the
// fallback for connections that vanish without reaching this call.
func (s *Service) CleanupConnection(ctx context.Context, connectionID string) {
	convs, err := s.conversations.ListDemoByConnection(ctx, connectionID)
	if err != nil {
		slog.Error("Demo cleanup: list by connection failed", "connection_id", connectionID, "error", err)
		return
	}
	var deleted int
	for _, conv := range convs {
		if err := s.conversations.Delete(ctx, conv.ID); err != nil {
			slog.Error("Demo cleanup: delete failed", "conversation_id", conv.ID, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		slog.Info("Demo cleanup: removed connection's demo conversations", "connection_id", connectionID, "count", deleted)
	}
}
