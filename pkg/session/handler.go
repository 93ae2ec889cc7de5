// Package session implements the Session Handlers (§4.3): the per-socket
// read/write loop pair that bridges a WebSocket connection to the Event
// Bus and Connection Registry, for both the document and conversation
// scopes.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/docuchat/pkg/auth"
	"github.com/codeready-toolchain/docuchat/pkg/config"
	"github.com/codeready-toolchain/docuchat/pkg/demo"
	"github.com/codeready-toolchain/docuchat/pkg/events"
	"github.com/codeready-toolchain/docuchat/pkg/models"
	"github.com/codeready-toolchain/docuchat/pkg/services"
)

// closeUnauthorized is the close code the spec reserves for "unauthorized
// or missing document" (§6).
const closeUnauthorized websocket.StatusCode = 4003

// clientType is the inbound-frame-type → emitted-Request-Event-type table
// for both scopes (§4.3's table). The document scope accepts only the
// document.* frames listed in documentScopeFrames; translate drops the rest.
var clientType = map[string]string{
	"conversation.main.create":          "conversation.main.create.requested",
	"conversation.chunk.create":         "conversation.chunk.create.requested",
	"conversation.message.send":         "conversation.message.send.requested",
	"conversation.questions.generate":   "conversation.questions.generate.requested",
	"conversation.questions.regenerate": "conversation.questions.regenerate.requested",
	"conversation.chunk.merge":          "conversation.merge.requested",
	"conversation.list":                 "conversation.list.requested",
	"conversation.messages.get":         "conversation.messages.requested",
	"conversation.get.by.sequence":      "conversation.chunk.get.requested",
	"document.chunk.list":               "document.chunk.list.requested",
	"document.metadata":                 "document.metadata.requested",
	"document.navigation":               "document.navigation.requested",
	"document.processing":               "document.processing.requested",
}

// documentScopeFrames is the set of client frame types the document scope
// forwards (§4.6's four request/response pairs); everything else is
// conversation-scope-only and dropped on this scope.
var documentScopeFrames = map[string]bool{
	"document.chunk.list": true,
	"document.metadata":   true,
	"document.navigation": true,
	"document.processing": true,
}

// Handlers wires the collaborators a session needs: the Bus to publish
// Request Events on and receive completions from (via Registry), the
// document owner check, and the demo sweep's eager per-connection cleanup.
type Handlers struct {
	Bus       *events.Bus
	Registry  *events.Registry
	Documents *services.DocumentService
	Users     *services.UserService
	Examples  config.ExampleDocumentSet
	Resolver  auth.Resolver
	Demo      *demo.Service
}

// Handle upgrades the request to a WebSocket and runs the connection's
// read/write loop pair until the socket closes, per §4.3. documentID and
// scope come from the route; token from the query string.
func (h *Handlers) Handle(ctx context.Context, conn *websocket.Conn, documentID, token string, scope models.ConnectionScope) {
	identity, err := h.Resolver.Resolve(ctx, token)
	if err != nil {
		identity = auth.Identity{Anonymous: true}
	}

	if !h.authorized(ctx, documentID, identity) {
		_ = conn.Close(closeUnauthorized, "unauthorized or missing document")
		return
	}
	if identity.UserID != "" && !identity.Anonymous {
		if err := h.Users.EnsureExists(ctx, identity.UserID); err != nil {
			slog.Error("session: ensure user failed", "user_id", identity.UserID, "error", err)
		}
	}

	connID := uuid.New().String()
	h.Registry.Connect(connID, documentID, scope, wsSocket{conn})
	defer func() {
		h.Registry.Disconnect(connID, documentID, scope)
		if scope == models.ScopeConversation && h.Demo != nil {
			h.Demo.CleanupConnection(context.Background(), connID)
		}
	}()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(connCtx, conn, connID)
	}()

	h.readLoop(connCtx, conn, documentID, connID, identity, scope)
	cancel()
	<-done
}

// authorized implements §4.3's admission rule: example documents are open
// to anyone; everything else requires the resolved user to own it.
func (h *Handlers) authorized(ctx context.Context, documentID string, identity auth.Identity) bool {
	if h.Examples.IsExample(documentID) {
		return true
	}
	if identity.Anonymous {
		return false
	}
	doc, err := h.Documents.Get(ctx, documentID)
	if err != nil {
		return false
	}
	return services.CanRead(doc, identity.UserID, h.Examples)
}

// writeLoop drains the registry's outbound queue for this connection and
// writes each event as a JSON frame until the connection is disconnected
// or ctx is done.
func (h *Handlers) writeLoop(ctx context.Context, conn *websocket.Conn, connID string) {
	for {
		ev, ok := h.Registry.Next(ctx, connID)
		if !ok {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Warn("session: marshal failed", "connection_id", connID, "error", err)
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Warn("session: write failed", "connection_id", connID, "error", err)
			return
		}
	}
}

// readLoop reads client frames, subscribes the connection to that frame
// type's completion/error events, and emits the corresponding Request
// Event on the bus.
func (h *Handlers) readLoop(ctx context.Context, conn *websocket.Conn, documentID, connID string, identity auth.Identity, scope models.ConnectionScope) {
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var frame models.ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			slog.Warn("session: invalid frame", "connection_id", connID, "error", err)
			continue
		}

		requestType, data := h.translate(frame, scope)
		if requestType == "" {
			continue
		}

		base := strings.TrimSuffix(requestType, ".requested")
		h.Registry.Subscribe(connID, base+".completed")
		h.Registry.Subscribe(connID, base+".error")
		// A handful of handlers emit an additional terminal event type
		// distinct from "<request>.completed" (chat streaming, and
		// chained question generation after chunk.create); subscribe to
		// those unconditionally since the cost of an unused subscription
		// is one map entry.
		h.Registry.Subscribe(connID, "chat.token")
		h.Registry.Subscribe(connID, "chat.completed")
		h.Registry.Subscribe(connID, "conversation.questions.generate.completed")

		if data == nil {
			data = map[string]any{}
		}
		if m, ok := data.(map[string]any); ok {
			if identity.UserID != "" && !identity.Anonymous {
				m["user_id"] = identity.UserID
			}
		}

		if err := h.Bus.Emit(models.Event{
			Type:         requestType,
			DocumentID:   documentID,
			ConnectionID: connID,
			RequestID:    frame.RequestID,
			Data:         data,
		}); err != nil {
			slog.Error("session: emit failed", "type", requestType, "error", err)
		}
	}
}

// translate maps a client frame's declared type to the Request Event type
// it emits, per §4.3's table, and decodes its data payload to a
// map[string]any (the shape every handler in pkg/conversation/pkg/document
// expects).
func (h *Handlers) translate(frame models.ClientFrame, scope models.ConnectionScope) (string, any) {
	eventType, ok := clientType[frame.Type]
	if !ok {
		return "", nil
	}
	if scope == models.ScopeDocument && !documentScopeFrames[frame.Type] {
		return "", nil
	}

	var data map[string]any
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			slog.Warn("session: malformed frame data", "type", frame.Type, "error", err)
			return "", nil
		}
	}
	return eventType, data
}

// wsSocket adapts *websocket.Conn to events.Socket.
type wsSocket struct {
	conn *websocket.Conn
}

func (s wsSocket) RemoteAddr() string {
	return "websocket"
}
