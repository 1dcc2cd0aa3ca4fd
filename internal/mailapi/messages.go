package mailapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sift/internal/message"
	"github.com/linnemanlabs/sift/internal/triage"
)

// maxBatchSize bounds one batch request.
const maxBatchSize = 100

// handleIngestMessage accepts one message, either as JSON or as a raw
// RFC 822 email (Content-Type message/rfc822), and triages it
// synchronously. New results answer 201, duplicates 200 with the stored
// result and its duplicate marker.
func (a *API) handleIngestMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := decodeMessage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	sr, err := a.svc.Submit(r.Context(), msg)
	if err != nil {
		var verr *message.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		a.logger.Error(r.Context(), err, "triage failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sift.fingerprint", sr.Result.Fingerprint),
		attribute.String("sift.category", string(sr.Result.Category)),
		attribute.Bool("sift.duplicate", sr.Duplicate),
	)

	status := http.StatusCreated
	if sr.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, sr.Result)
}

// handleIngestBatch triages a JSON array of messages concurrently and
// answers a positional array of per-message outcomes.
func (a *API) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var msgs []*message.Message
	if err := json.NewDecoder(r.Body).Decode(&msgs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}
	if len(msgs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "batch too large")
		return
	}
	for _, msg := range msgs {
		if msg == nil {
			writeError(w, http.StatusBadRequest, "null message in batch")
			return
		}
	}

	items := a.svc.ProcessBatch(r.Context(), msgs)

	resp := make([]batchOutcome, len(items))
	for i, item := range items {
		if item.Err != nil {
			resp[i] = batchOutcome{Error: item.Err.Error()}
			continue
		}
		resp[i] = batchOutcome{Result: item.Result.Result, Duplicate: item.Result.Duplicate}
	}

	writeJSON(w, http.StatusOK, resp)
}

type batchOutcome struct {
	Result    *triage.Result `json:"result,omitempty"`
	Duplicate bool           `json:"duplicate,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func decodeMessage(r *http.Request) (*message.Message, error) {
	ct := r.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil && mt == "message/rfc822" {
		return message.ParseEML(r.Body)
	}

	var msg message.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
