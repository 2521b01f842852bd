package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// newUpgrader accepts the same origins as the CORS middleware.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(allowedOrigins, origin)
		},
	}
}

// StreamJob handles GET /api/video/jobs/{id}/ws. It sends a JobResponse
// whenever the job changes and closes the socket once every unit is done
// or failed.
func (h *Handlers) StreamJob(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, ok := h.lookupJob(w, r)
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			h.logger.Warn("websocket upgrade failed",
				slog.String("job_id", current.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		defer func() { _ = conn.Close() }()

		log := h.logger.With(slog.String("job_id", current.ID))
		log.Debug("job stream opened")

		// Reader: handles pongs and notices when the client goes away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		poll := time.NewTicker(h.streamInterval)
		defer poll.Stop()
		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()

		var lastVersion uint64
		sent := false
		for {
			if !sent || current.Version != lastVersion {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(h.jobResponse(current)); err != nil {
					log.Debug("job stream write failed", slog.String("error", err.Error()))
					return
				}
				lastVersion = current.Version
				sent = true
			}
			if current.Complete() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job complete")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				log.Debug("job stream finished")
				return
			}

			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-poll.C:
				next, err := h.service.GetJob(r.Context(), current.ID)
				if err != nil {
					log.Warn("job stream lookup failed", slog.String("error", err.Error()))
					return
				}
				current = next
			}
		}
	}
}
