package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/campusbuy/internal/response"
)

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /healthz.
func Health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			response.JSON(w, http.StatusServiceUnavailable, response.Envelope{
				Status:  response.StatusError,
				Message: "storage unavailable",
			})
			return
		}
		response.Success(w, http.StatusOK, map[string]string{"storage": "ok"})
	}
}
