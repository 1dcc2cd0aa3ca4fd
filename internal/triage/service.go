package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/extract"
	"github.com/linnemanlabs/sift/internal/fingerprint"
	"github.com/linnemanlabs/sift/internal/message"
)

// defaultWorkers bounds batch concurrency when none is configured.
const defaultWorkers = 4

// Notifier delivers completed triage results to an external channel.
type Notifier interface {
	Send(ctx context.Context, result *Result) error
}

// SubmitResult is the outcome of submitting one message.
type SubmitResult struct {
	Result    *Result
	Duplicate bool
}

// BatchItem pairs one batch message with its outcome. Exactly one of
// Result or Err is set.
type BatchItem struct {
	Result *SubmitResult
	Err    error
}

// Service orchestrates the triage pipeline for each message:
// fingerprint, dedup check, concurrent extraction and classification,
// merge, persist.
type Service struct {
	store    Store
	gateway  *classify.Gateway
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
	model    string
	workers  int
}

// NewService creates a triage service. metrics and notifier may be nil.
func NewService(store Store, gateway *classify.Gateway, logger log.Logger, metrics *Metrics, notifier Notifier, workers int) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
		workers:  workers,
	}
}

// SetModel records the backend model name stamped onto results.
func (s *Service) SetModel(model string) { s.model = model }

// Submit triages one message and returns exactly one result or exactly
// one error. Duplicates short-circuit before extraction and
// classification and return the stored result untouched; component
// failures (partial extraction, backend timeout) are absorbed into the
// result rather than failing the message.
func (s *Service) Submit(ctx context.Context, msg *message.Message) (*SubmitResult, error) {
	if err := msg.Validate(); err != nil {
		s.metrics.incSubmit(outcomeRejected)
		return nil, err
	}

	start := time.Now()
	fp := fingerprint.Compute(msg)

	L := s.logger.With("fingerprint", fp)

	// Dedup short-circuit. A previously triaged fingerprint is terminal:
	// the stored result is never recomputed, even if the backend has
	// changed since.
	if existing, ok, err := s.store.Get(ctx, fp); err != nil {
		s.metrics.incSubmit(outcomeFailed)
		return nil, fmt.Errorf("dedup lookup: %w", err)
	} else if ok {
		L.Info(ctx, "duplicate message", "duplicate_of", existing.ID)
		s.metrics.incSubmit(outcomeDuplicate)
		return &SubmitResult{Result: duplicateOf(existing), Duplicate: true}, nil
	}

	result := &Result{
		ID:          ulid.Make().String(),
		Fingerprint: fp,
		Model:       s.model,
		CreatedAt:   time.Now(),
	}

	// Extraction and classification are independent of each other's
	// output and run concurrently. Both are absorbed, never fatal:
	// extraction is pure and degrades to partial fields, and the gateway
	// downgrades backend failures internally.
	var cls classify.Classification
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Extracted = extract.Extract(msg.Text())
		for _, att := range msg.Attachments {
			if att.Text == "" {
				continue
			}
			if f := extract.Extract(att.Text); !f.Empty() {
				result.Attachments = append(result.Attachments, AttachmentFields{Name: att.Name, Fields: f})
			}
		}
		return nil
	})
	g.Go(func() error {
		cls = s.gateway.Classify(gctx, msg.Text())
		return nil
	})
	_ = g.Wait() // both branches always return nil

	result.Category = cls.Category
	result.Confidence = cls.Confidence
	result.RawLabel = cls.RawLabel
	result.SubType = cls.SubType
	result.BackendUnavailable = cls.BackendUnavailable
	result.Duration = time.Since(start).Seconds()

	// Atomic first-write-wins insert. Losing a concurrent race is not an
	// error: the caller is redirected to the winning result.
	if err := s.store.Put(ctx, result); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			if winner, ok, gerr := s.store.Get(ctx, fp); gerr == nil && ok {
				L.Info(ctx, "lost dedup write race", "winner", winner.ID)
				s.metrics.incSubmit(outcomeDuplicate)
				return &SubmitResult{Result: duplicateOf(winner), Duplicate: true}, nil
			}
		}
		s.metrics.incSubmit(outcomeFailed)
		return nil, fmt.Errorf("store put: %w", err)
	}

	s.metrics.incSubmit(outcomeAccepted)
	s.metrics.observeResult(result)

	L.Info(ctx, "triage complete",
		"id", result.ID,
		"category", result.Category,
		"confidence", result.Confidence,
		"backend_unavailable", result.BackendUnavailable,
		"duration", result.Duration,
	)

	if s.notifier != nil {
		// Best effort, off the request path.
		go func(r *Result) {
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			if err := s.notifier.Send(nctx, r); err != nil {
				s.logger.Error(nctx, err, "notify failed", "id", r.ID)
			}
		}(result)
	}

	return &SubmitResult{Result: result}, nil
}

// Get retrieves a stored triage result by fingerprint.
func (s *Service) Get(ctx context.Context, fp string) (*Result, bool, error) {
	return s.store.Get(ctx, fp)
}

// ProcessBatch triages messages concurrently under the configured worker
// bound. The returned slice is positional: item i is the outcome for
// msgs[i], each carrying exactly one result or one error.
func (s *Service) ProcessBatch(ctx context.Context, msgs []*message.Message) []BatchItem {
	items := make([]BatchItem, len(msgs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, msg := range msgs {
		g.Go(func() error {
			sr, err := s.Submit(ctx, msg)
			items[i] = BatchItem{Result: sr, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

// duplicateOf returns a caller-facing copy of a stored result with the
// duplicate marker set. The stored result itself stays untouched.
func duplicateOf(stored *Result) *Result {
	cp := *stored
	cp.DuplicateOf = stored.Fingerprint
	return &cp
}
