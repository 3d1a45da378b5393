// Package insight asks a generative-AI service for short production
// insights. Failures never reach the caller: they become a fixed fallback
// text.
package insight

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// FallbackText is shown when the service cannot be reached.
	FallbackText = "Analytics engine offline."
	// EmptyText is shown when the service answered with no text.
	EmptyText = "Unable to generate insights at this time."

	insightPrompt = "Analyze this PCBA manufacturing data and provide 3 key insights for production optimization: "
	imagePrompt   = "Please edit this quality inspection image: %s. Return only the edited image."

	DefaultTimeout = 15 * time.Second
)

// Outcome labels recorded per request.
const (
	OutcomeOK           = "ok"
	OutcomeEmpty        = "empty"
	OutcomeError        = "error"
	OutcomeUnconfigured = "unconfigured"
	OutcomeAbandoned    = "abandoned"
)

// Generator is the external text and image service.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	EditImage(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, string, error)
}

// Fetcher issues insight requests with a deadline, deduplicating identical
// concurrent payloads.
type Fetcher struct {
	mu      sync.RWMutex
	gen     Generator
	timeout time.Duration

	log      *zap.Logger
	outcomes *prometheus.CounterVec
	group    singleflight.Group

	fmu     sync.Mutex
	flights map[string]*flight
}

// flight is one shared upstream call. It outlives any single caller and is
// cancelled once no caller is waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds every upstream call.
func WithTimeout(d time.Duration) Option { return func(f *Fetcher) { f.timeout = d } }

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *zap.Logger) Option { return func(f *Fetcher) { f.log = l } }

// WithOutcomes counts requests by outcome; the vector needs an "outcome" label.
func WithOutcomes(c *prometheus.CounterVec) Option { return func(f *Fetcher) { f.outcomes = c } }

// NewFetcher returns a Fetcher using gen, which may be nil when no service is
// configured.
func NewFetcher(gen Generator, opts ...Option) *Fetcher {
	f := &Fetcher{gen: gen, timeout: DefaultTimeout, log: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// SetGenerator swaps the upstream service, e.g. after a config reload.
func (f *Fetcher) SetGenerator(gen Generator) {
	f.mu.Lock()
	f.gen = gen
	f.mu.Unlock()
}

// SetTimeout changes the per-call deadline.
func (f *Fetcher) SetTimeout(d time.Duration) {
	f.mu.Lock()
	f.timeout = d
	f.mu.Unlock()
}

// Configured reports whether a generator is set.
func (f *Fetcher) Configured() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.gen != nil
}

func (f *Fetcher) current() (Generator, time.Duration) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.gen, f.timeout
}

func (f *Fetcher) record(outcome string) {
	if f.outcomes != nil {
		f.outcomes.WithLabelValues(outcome).Inc()
	}
}

// FetchInsight serializes payload into the analysis prompt and returns the
// reply text. Any failure yields FallbackText; an empty reply yields EmptyText.
func (f *Fetcher) FetchInsight(ctx context.Context, payload any) string {
	gen, timeout := f.current()
	if gen == nil {
		f.record(OutcomeUnconfigured)
		return FallbackText
	}
	data, err := json.Marshal(payload)
	if err != nil {
		f.log.Warn("insight payload not serializable", zap.Error(err))
		f.record(OutcomeError)
		return FallbackText
	}
	prompt := insightPrompt + string(data)

	fl := f.join(ctx, prompt)
	defer f.leave(prompt, fl)

	ch := f.group.DoChan(prompt, func() (any, error) {
		return safeGenerate(fl.ctx, gen, timeout, prompt)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		f.record(OutcomeAbandoned)
		return FallbackText
	}
	if res.Err != nil {
		f.log.Warn("insight request failed", zap.Error(res.Err), zap.Bool("shared", res.Shared))
		f.record(OutcomeError)
		return FallbackText
	}
	text := strings.TrimSpace(res.Val.(string))
	if text == "" {
		f.record(OutcomeEmpty)
		return EmptyText
	}
	f.record(OutcomeOK)
	return text
}

// join registers a caller on the flight for prompt, starting one if needed.
// The flight context keeps ctx values but not its cancellation.
func (f *Fetcher) join(ctx context.Context, prompt string) *flight {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	if f.flights == nil {
		f.flights = map[string]*flight{}
	}
	fl, ok := f.flights[prompt]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: fctx, cancel: cancel}
		f.flights[prompt] = fl
	}
	fl.waiters++
	return fl
}

// leave drops a caller. The last one out cancels the upstream call and lets
// the next request for prompt start afresh.
func (f *Fetcher) leave(prompt string, fl *flight) {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if f.flights[prompt] == fl {
		delete(f.flights, prompt)
		f.group.Forget(prompt)
	}
}

func safeGenerate(ctx context.Context, gen Generator, timeout time.Duration, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return gen.GenerateText(ctx, prompt)
}

// Task is an insight request tied to its consumer's lifetime.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	text      string
	cancelled bool
}

// Start runs FetchInsight in the background. Cancel the task when its
// consumer goes away; the result is then discarded.
func (f *Fetcher) Start(ctx context.Context, payload any) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		text := f.FetchInsight(ctx, payload)
		t.mu.Lock()
		t.text = text
		t.mu.Unlock()
	}()
	return t
}

// Cancel abandons the task. It is safe to call more than once.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.cancel()
}

// Done is closed when the background call has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends. ok is false when the task
// was cancelled or ctx ended first.
func (t *Task) Wait(ctx context.Context) (string, bool) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return "", false
	}
	return t.text, true
}

// EditQualityImage asks the image service to apply instruction to image and
// returns the edited bytes, or nil on any failure.
func (f *Fetcher) EditQualityImage(ctx context.Context, image []byte, mimeType, instruction string) []byte {
	gen, timeout := f.current()
	if gen == nil {
		f.record(OutcomeUnconfigured)
		return nil
	}
	out, err := safeEdit(ctx, gen, timeout, image, mimeType, fmt.Sprintf(imagePrompt, instruction))
	if err != nil {
		f.log.Warn("image edit failed", zap.Error(err))
		f.record(OutcomeError)
		return nil
	}
	f.record(OutcomeOK)
	return out
}

func safeEdit(ctx context.Context, gen Generator, timeout time.Duration, image []byte, mimeType, prompt string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, _, err = gen.EditImage(ctx, image, mimeType, prompt)
	return out, err
}

var ErrBadImage = errors.New("invalid image encoding")

// DecodeImage decodes base64 image text, accepting an optional data URL
// prefix such as "data:image/png;base64,". The mime type from the prefix is
// returned, or fallbackMime when there is none.
func DecodeImage(s, fallbackMime string) ([]byte, string, error) {
	mime := fallbackMime
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", ErrBadImage
		}
		if m, _, _ := strings.Cut(header, ";"); m != "" {
			mime = m
		}
		s = body
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return data, mime, nil
}
