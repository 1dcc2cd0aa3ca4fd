package mailapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/sift/internal/message"
	"github.com/linnemanlabs/sift/internal/triage"
)

// TriageService defines the business operations mailapi needs.
type TriageService interface {
	Submit(ctx context.Context, msg *message.Message) (*triage.SubmitResult, error)
	ProcessBatch(ctx context.Context, msgs []*message.Message) []triage.BatchItem
	Get(ctx context.Context, fingerprint string) (*triage.Result, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", a.handleIngestMessage)
		r.Post("/messages/batch", a.handleIngestBatch)
		r.Get("/results/{fingerprint}", a.handleGetResult)
	})
}

func (a *API) handleGetResult(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.fingerprint", fp))

	result, ok, err := a.svc.Get(r.Context(), fp)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get triage result", "fingerprint", fp)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(attribute.String("sift.category", string(result.Category)))

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
