package v1health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-http-utils/headers"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/media"
)

type HealthResultDto struct {
	Status  string `json:"status"`
	Sandbox bool   `json:"sandbox"`
}

type healthHandler struct {
	sandbox bool
}

func Create(server chi.Router, sandbox bool) {
	h := &healthHandler{sandbox: sandbox}
	server.Get("/info/health", h.healthGet)
	server.Get("/", h.healthGet)
}

func (h *healthHandler) healthGet(w http.ResponseWriter, r *http.Request) {
	dto := HealthResultDto{Status: "up", Sandbox: h.sandbox}

	w.Header().Add(headers.ContentType, media.ContentTypeApplicationJson)
	w.WriteHeader(http.StatusOK)
	writeJson(r.Context(), w, dto)
}

func writeJson(ctx context.Context, w http.ResponseWriter, v interface{}) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(v)
	if err != nil {
		logging.LoggerFromContext(ctx).Warn("error while encoding json response: %v", err)
	}
}
