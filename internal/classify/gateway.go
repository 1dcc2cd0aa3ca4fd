package classify

import (
	"context"
	"errors"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v4"
	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/classify")

const maxLabelLen = 64

// Hooks are optional callbacks the gateway fires around backend calls,
// wired to Prometheus by main.
type Hooks struct {
	OnCall  func(duration float64, err error)
	OnRetry func()
}

// Gateway adapts a Backend to the triage pipeline: it enforces the call
// timeout, retries once on transient failure, validates the response
// structurally, and maps the raw label onto the Category enum. It never
// returns an error; unusable backends degrade to Other.
type Gateway struct {
	backend Backend
	timeout time.Duration
	logger  log.Logger
	hooks   Hooks
}

// NewGateway creates a gateway around the given backend.
func NewGateway(backend Backend, timeout time.Duration, logger log.Logger, hooks Hooks) *Gateway {
	if logger == nil {
		logger = log.Nop()
	}
	return &Gateway{
		backend: backend,
		timeout: timeout,
		logger:  logger,
		hooks:   hooks,
	}
}

// Classify runs the backend against the message text and normalizes the
// outcome. Timeout or transport failure after retry exhaustion yields
// Other/0 with BackendUnavailable set; a malformed response yields Other/0
// without the flag. Both complete the triage rather than failing it.
func (g *Gateway) Classify(ctx context.Context, text string) Classification {
	ctx, span := tracer.Start(ctx, "classify.call")
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.call(cctx, text)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			g.logger.Warn(ctx, "backend response failed validation", "error", err)
			span.SetAttributes(attribute.String("sift.classify.category", string(CategoryOther)))
			return Classification{Category: CategoryOther, Confidence: 0}
		}
		g.logger.Warn(ctx, "classification backend unavailable", "error", err)
		span.SetAttributes(
			attribute.String("sift.classify.category", string(CategoryOther)),
			attribute.Bool("sift.classify.backend_unavailable", true),
		)
		return Classification{Category: CategoryOther, Confidence: 0, BackendUnavailable: true}
	}

	c := Classification{
		Category:   mapLabel(raw.Label),
		Confidence: clampConfidence(raw.Confidence),
		RawLabel:   raw.Label,
	}
	if raw.SubLabel != "" && validSubLabel(raw.Label, raw.SubLabel) {
		c.SubType = raw.SubLabel
	}
	span.SetAttributes(
		attribute.String("sift.classify.category", string(c.Category)),
		attribute.Float64("sift.classify.confidence", c.Confidence),
	)
	return c
}

// call invokes the backend with at most one retry. Malformed responses are
// permanent; everything else (transport errors, rate limits) is treated as
// transient.
func (g *Gateway) call(ctx context.Context, text string) (*RawResult, error) {
	var raw *RawResult
	attempt := 0

	op := func() error {
		if attempt++; attempt > 1 {
			if g.hooks.OnRetry != nil {
				g.hooks.OnRetry()
			}
		}

		start := time.Now()
		r, err := g.backend.ClassifyRaw(ctx, text)
		if g.hooks.OnCall != nil {
			g.hooks.OnCall(time.Since(start).Seconds(), err)
		}
		if err != nil {
			if errors.Is(err, ErrMalformedResponse) {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := validate(r); err != nil {
			return backoff.Permanent(err)
		}
		raw = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 1), ctx)); err != nil {
		return nil, err
	}
	return raw, nil
}

// validate enforces the strict intermediate shape: a non-empty printable
// label of bounded length and a sane score. The backend is untrusted
// input; its text is never interpreted beyond this check.
func validate(r *RawResult) error {
	if r == nil {
		return ErrMalformedResponse
	}
	if !printableLabel(r.Label) || (r.SubLabel != "" && !printableLabel(r.SubLabel)) {
		return ErrMalformedResponse
	}
	return nil
}

func printableLabel(s string) bool {
	if s == "" || len(s) > maxLabelLen {
		return false
	}
	for _, r := range s {
		if r != ' ' && !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
