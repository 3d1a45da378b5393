package insight

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGenerator struct {
	text    string
	err     error
	image   []byte
	block   bool
	panics  bool
	calls   atomic.Int32
	started chan struct{}
	once    sync.Once
	prompt  atomic.Value
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	g.prompt.Store(prompt)
	if g.started != nil {
		g.once.Do(func() { close(g.started) })
	}
	if g.panics {
		panic("boom")
	}
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.text, g.err
}

func (g *fakeGenerator) EditImage(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, string, error) {
	g.prompt.Store(instruction)
	if g.err != nil {
		return nil, "", g.err
	}
	return g.image, mimeType, nil
}

var weekly = []map[string]any{{"name": "Mon", "fpy": 98.2}, {"name": "Tue", "fpy": 97.5}}

func TestFetchInsight_ServiceFailureReturnsFallback(t *testing.T) {
	f := NewFetcher(&fakeGenerator{err: errors.New("503 service unavailable")})
	assert.Equal(t, FallbackText, f.FetchInsight(context.Background(), weekly))
}

func TestFetchInsight_Success(t *testing.T) {
	gen := &fakeGenerator{text: "  1. Thursday FPY dipped below target.\n"}
	f := NewFetcher(gen)

	got := f.FetchInsight(context.Background(), weekly)
	assert.Equal(t, "1. Thursday FPY dipped below target.", got)
	prompt := gen.prompt.Load().(string)
	assert.True(t, strings.HasPrefix(prompt, "Analyze this PCBA manufacturing data and provide 3 key insights for production optimization: "))
	assert.Contains(t, prompt, `"fpy":98.2`)
}

func TestFetchInsight_EmptyReply(t *testing.T) {
	f := NewFetcher(&fakeGenerator{text: "   "})
	assert.Equal(t, EmptyText, f.FetchInsight(context.Background(), weekly))
}

func TestFetchInsight_Unconfigured(t *testing.T) {
	f := NewFetcher(nil)
	assert.False(t, f.Configured())
	assert.Equal(t, FallbackText, f.FetchInsight(context.Background(), weekly))
}

func TestFetchInsight_PanicIsContained(t *testing.T) {
	f := NewFetcher(&fakeGenerator{panics: true})
	assert.NotPanics(t, func() {
		assert.Equal(t, FallbackText, f.FetchInsight(context.Background(), weekly))
	})
}

func TestFetchInsight_UnserializablePayload(t *testing.T) {
	gen := &fakeGenerator{text: "x"}
	f := NewFetcher(gen)
	assert.Equal(t, FallbackText, f.FetchInsight(context.Background(), map[string]any{"bad": make(chan int)}))
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestFetchInsight_Timeout(t *testing.T) {
	f := NewFetcher(&fakeGenerator{block: true}, WithTimeout(20*time.Millisecond))
	start := time.Now()
	assert.Equal(t, FallbackText, f.FetchInsight(context.Background(), weekly))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchInsight_Outcomes(t *testing.T) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "insight_requests_total"}, []string{"outcome"})
	gen := &fakeGenerator{text: "ok"}
	f := NewFetcher(gen, WithOutcomes(vec))
	f.FetchInsight(context.Background(), weekly)
	gen.text = ""
	f.FetchInsight(context.Background(), weekly)
	f.SetGenerator(nil)
	f.FetchInsight(context.Background(), weekly)

	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues(OutcomeUnconfigured)))
}

func TestTask_CancelDiscardsResult(t *testing.T) {
	gen := &fakeGenerator{block: true, started: make(chan struct{})}
	f := NewFetcher(gen, WithTimeout(time.Minute))

	task := f.Start(context.Background(), weekly)
	<-gen.started
	task.Cancel()

	text, ok := task.Wait(context.Background())
	assert.False(t, ok)
	assert.Empty(t, text)
	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("background call did not stop after cancel")
	}
	task.Cancel()
}

func TestTask_Completes(t *testing.T) {
	f := NewFetcher(&fakeGenerator{text: "insight"})
	task := f.Start(context.Background(), weekly)
	text, ok := task.Wait(context.Background())
	require.True(t, ok)
	assert.Equal(t, "insight", text)
}

func TestTask_WaitContextEnds(t *testing.T) {
	gen := &fakeGenerator{block: true, started: make(chan struct{})}
	f := NewFetcher(gen, WithTimeout(time.Minute))
	task := f.Start(context.Background(), weekly)
	<-gen.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok := task.Wait(ctx)
	assert.False(t, ok)

	task.Cancel()
	<-task.Done()
}

func TestFetchInsight_DeduplicatesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	gen := &slowGenerator{release: release}
	f := NewFetcher(gen)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.FetchInsight(context.Background(), weekly)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	assert.LessOrEqual(t, gen.calls.Load(), int32(5))
	assert.GreaterOrEqual(t, gen.calls.Load(), int32(1))
}

func TestFetchInsight_SharedCallOutlivesFirstCaller(t *testing.T) {
	release := make(chan struct{})
	gen := &slowGenerator{release: release}
	f := NewFetcher(gen, WithTimeout(time.Minute))
	prompt := promptFor(t, weekly)

	first, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan string, 1)
	go func() { firstDone <- f.FetchInsight(first, weekly) }()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

	secondDone := make(chan string, 1)
	go func() { secondDone <- f.FetchInsight(context.Background(), weekly) }()
	require.Eventually(t, func() bool { return waiting(f, prompt) == 2 }, 2*time.Second, time.Millisecond)

	cancelFirst()
	select {
	case got := <-firstDone:
		assert.Equal(t, FallbackText, got)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller stayed blocked on the shared call")
	}

	close(release)
	assert.Equal(t, "shared", <-secondDone)
	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Zero(t, waiting(f, prompt))
}

func TestFetchInsight_WaiterDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := NewFetcher(&slowGenerator{release: release}, WithTimeout(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.Equal(t, FallbackText, f.FetchInsight(ctx, weekly))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchInsight_LastCallerCancelsUpstream(t *testing.T) {
	gen := &fakeGenerator{block: true, started: make(chan struct{})}
	f := NewFetcher(gen, WithTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan string, 1)
	go func() { done <- f.FetchInsight(ctx, weekly) }()
	<-gen.started
	cancel()
	assert.Equal(t, FallbackText, <-done)

	f.SetGenerator(&fakeGenerator{text: "fresh"})
	require.Eventually(t, func() bool { return waiting(f, promptFor(t, weekly)) == 0 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, "fresh", f.FetchInsight(context.Background(), weekly))
}

func promptFor(t *testing.T, payload any) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return insightPrompt + string(data)
}

func waiting(f *Fetcher, prompt string) int {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	if fl, ok := f.flights[prompt]; ok {
		return fl.waiters
	}
	return 0
}

type slowGenerator struct {
	release chan struct{}
	calls   atomic.Int32
}

func (g *slowGenerator) GenerateText(ctx context.Context, _ string) (string, error) {
	g.calls.Add(1)
	<-g.release
	return "shared", nil
}

func (g *slowGenerator) EditImage(context.Context, []byte, string, string) ([]byte, string, error) {
	return nil, "", errors.New("unsupported")
}

func TestEditQualityImage(t *testing.T) {
	gen := &fakeGenerator{image: []byte{0x89, 'P', 'N', 'G'}}
	f := NewFetcher(gen)
	out := f.EditQualityImage(context.Background(), []byte("raw"), "image/png", "highlight the solder bridge at U3")
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, out)
	assert.Equal(t, "Please edit this quality inspection image: highlight the solder bridge at U3. Return only the edited image.", gen.prompt.Load())

	gen.err = errors.New("quota exceeded")
	assert.Nil(t, f.EditQualityImage(context.Background(), []byte("raw"), "image/png", "x"))
	assert.Nil(t, NewFetcher(nil).EditQualityImage(context.Background(), []byte("raw"), "image/png", "x"))
}

func TestDecodeImage(t *testing.T) {
	data, mime, err := DecodeImage("data:image/jpeg;base64,aGVsbG8=", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "image/jpeg", mime)

	data, mime, err = DecodeImage("aGVsbG8=", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "image/png", mime)

	_, _, err = DecodeImage("data:image/png;base64", "image/png")
	assert.ErrorIs(t, err, ErrBadImage)
	_, _, err = DecodeImage("!!!", "image/png")
	assert.ErrorIs(t, err, ErrBadImage)
}
