package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/expohall/expohall/internal/access"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/live"
	"github.com/expohall/expohall/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware before upgrade.
		return true
	},
}

// LiveHandlers holds dependencies for the live booth-event WebSocket.
type LiveHandlers struct {
	repo        floorplan.Repository
	broadcaster *live.EventBroadcaster
}

// NewLiveHandlers creates a new LiveHandlers instance.
func NewLiveHandlers(repo floorplan.Repository, broadcaster *live.EventBroadcaster) *LiveHandlers {
	return &LiveHandlers{repo: repo, broadcaster: broadcaster}
}

// SubscribeToBoothEvents handles GET /floor-plans/{id}/live - a read-only
// stream of booth status events for one plan.
func (h *LiveHandlers) SubscribeToBoothEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := middleware.GetIdentity(ctx)
	planID := r.PathValue("id")

	plan, err := h.repo.GetByID(ctx, planID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := access.AuthorizeRead(identity, plan); err != nil {
		writeDomainError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"floor_plan_id", planID,
		)
		return
	}

	h.broadcaster.Subscribe(planID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to booth events",
		"floor_plan_id", planID,
		"request_id", requestID,
	)

	defer func() {
		h.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"floor_plan_id", planID,
			"request_id", requestID,
		)
	}()

	// Clients never send messages; reading detects disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"floor_plan_id", planID,
				)
			}
			break
		}
	}
}
