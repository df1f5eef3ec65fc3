package httpapi

import (
	"context"
	"net/http"
	"time"

	"salesservice/internal/reports"

	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// generateReport queues a report command and answers 202 without waiting
// for the file. An empty body requests the current month.
func (a *api) generateReport(w http.ResponseWriter, r *http.Request) {
	var req reports.Request
	if err := decodeJSON(w, r, &req); err != nil && err != errEmptyBody {
		WriteJSONError(w, err)
		return
	}

	ack, err := a.reports.RequestReport(r.Context(), req)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := a.health.Ping(ctx); err != nil {
		a.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
