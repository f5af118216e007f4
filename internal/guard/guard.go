// Package guard keeps out-of-order completions from overwriting newer data.
//
// Every guarded fetch takes a token from a monotonically increasing counter when it
// is issued. When the fetch completes, its result is applied only if no other fetch
// has been issued on the same guard in the meantime; otherwise it is dropped without
// any callback. Issuance order decides, not completion order.
package guard

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/metrics"
)

// Token identifies one issued fetch. Later fetches always hold larger tokens.
type Token uint64

// Outcome reports what a guarded fetch did with its result.
type Outcome int

const (
	// OutcomeApplied means the sink received the value.
	OutcomeApplied Outcome = iota + 1
	// OutcomeFailed means the notifier received the error.
	OutcomeFailed
	// OutcomeStale means a newer fetch was issued and the result was dropped.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Settlement is the full result of one guarded fetch: the token it ran under,
// what happened to the result, and the error handed to the notifier when the
// outcome is OutcomeFailed.
type Settlement struct {
	Token   Token
	Outcome Outcome
	Err     error
}

// Guard owns one request-sequence counter. Use one guard per logical resource;
// fetches of different resources must not share a guard or they will discard each
// other's results.
type Guard struct {
	counter atomic.Uint64
	logger  *logging.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger routes stale drops (debug) and callback panics (error) to logger.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// New returns a guard whose counter starts at zero.
func New(opts ...Option) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue increments the counter and returns the new token.
func (g *Guard) Issue() Token {
	return Token(g.counter.Add(1))
}

// Current returns the most recently issued token, zero if none.
func (g *Guard) Current() Token {
	return Token(g.counter.Load())
}

// IsCurrent reports whether t is still the most recently issued token.
func (g *Guard) IsCurrent(t Token) bool {
	return t == g.Current()
}

// Do issues a token, runs perform, and hands the result to sink or notifier only if
// the token is still current. It blocks until perform returns.
func Do[T any](ctx context.Context, g *Guard, operationID string, perform func(context.Context) (T, error), sink RenderSink[T], notifier Notifier) Outcome {
	return Run(ctx, g, g.Issue(), operationID, perform, sink, notifier).Outcome
}

// Go is the asynchronous form of Do. The token is issued before Go returns, so calls
// made in sequence are ordered even though their fetches run concurrently. The
// channel receives exactly one outcome.
func Go[T any](ctx context.Context, g *Guard, operationID string, perform func(context.Context) (T, error), sink RenderSink[T], notifier Notifier) <-chan Outcome {
	token := g.Issue()
	done := make(chan Outcome, 1)
	go func() {
		done <- Run(ctx, g, token, operationID, perform, sink, notifier).Outcome
	}()
	return done
}

// Run completes a fetch under a token the caller obtained from g.Issue. Callers
// that must tie the token to other state (the selected year, say) issue it while
// holding their own lock and run the fetch after releasing it.
func Run[T any](ctx context.Context, g *Guard, token Token, operationID string, perform func(context.Context) (T, error), sink RenderSink[T], notifier Notifier) Settlement {
	if ctx == nil {
		ctx = context.Background()
	}
	value, err := perform(ctx)
	result := fetch.From(value, err)
	outcome := settle(g, token, operationID, result, sink, notifier)
	metrics.RecordGuardOutcome(operationID, outcome.String())

	settlement := Settlement{Token: token, Outcome: outcome}
	if outcome == OutcomeFailed {
		settlement.Err = result.Err
	}
	return settlement
}

// Start is the asynchronous form of Run. The channel receives exactly one
// settlement.
func Start[T any](ctx context.Context, g *Guard, token Token, operationID string, perform func(context.Context) (T, error), sink RenderSink[T], notifier Notifier) <-chan Settlement {
	done := make(chan Settlement, 1)
	go func() {
		done <- Run(ctx, g, token, operationID, perform, sink, notifier)
	}()
	return done
}

func settle[T any](g *Guard, token Token, operationID string, result fetch.Result[T], sink RenderSink[T], notifier Notifier) Outcome {
	if current := g.Current(); token != current {
		g.debug("Discarding stale result",
			zap.String("operation", operationID),
			zap.Uint64("token", uint64(token)),
			zap.Uint64("current", uint64(current)))
		return OutcomeStale
	}

	if result.IsOk() {
		if sink != nil {
			g.safely(operationID, "render", func() { sink.Render(result.Value) })
		}
		return OutcomeApplied
	}

	kind := fetch.KindOf(result.Err)
	message := fetch.MessageOf(result.Err)
	if notifier == nil {
		// No notifier attached: log rather than drop.
		g.warn("Fetch failed with no notifier attached",
			zap.String("operation", operationID),
			zap.String("kind", string(kind)),
			zap.String("message", message))
		return OutcomeFailed
	}
	g.safely(operationID, "notify", func() { notifier.NotifyError(kind, message) })
	return OutcomeFailed
}

// safely runs a host callback; a panic inside it is logged and does not escape.
func (g *Guard) safely(operationID, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil && g.logger != nil {
			g.logger.Error("Guarded fetch callback panicked",
				zap.String("operation", operationID),
				zap.String("callback", callback),
				zap.Any("panic", r))
		}
	}()
	fn()
}

func (g *Guard) debug(msg string, fields ...zap.Field) {
	if g.logger != nil {
		g.logger.Debug(msg, fields...)
	}
}

func (g *Guard) warn(msg string, fields ...zap.Field) {
	if g.logger != nil {
		g.logger.Warn(msg, fields...)
	}
}
