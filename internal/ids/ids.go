// Package ids generates record identifiers of the form PREFIX-YYYY-NNNN.
package ids

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Generator hands out monotonic per-prefix, per-year sequence numbers.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	last map[string]int // key: prefix-year
}

// New returns a Generator using the wall clock.
func New() *Generator {
	return &Generator{now: time.Now, last: map[string]int{}}
}

// NewWithClock returns a Generator whose year comes from now.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now, last: map[string]int{}}
}

// Next returns the next id for prefix zero-padded to digits. Candidates for
// which taken reports true are skipped; taken may be nil.
func (g *Generator) Next(prefix string, digits int, taken func(string) bool) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	year := g.now().Format("2006")
	key := prefix + "-" + year
	for {
		g.last[key]++
		id := fmt.Sprintf("%s-%s-%0*d", prefix, year, digits, g.last[key])
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// Observe advances the sequence past id when it has the PREFIX-YYYY-N shape,
// so ids loaded from seed data or a snapshot are never handed out again.
func (g *Generator) Observe(id string) {
	i := strings.LastIndex(id, "-")
	if i <= 0 {
		return
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return
	}
	key := id[:i]
	j := strings.LastIndex(key, "-")
	if j <= 0 {
		return
	}
	if _, err := strconv.Atoi(key[j+1:]); err != nil || len(key[j+1:]) != 4 {
		return
	}
	g.mu.Lock()
	if n > g.last[key] {
		g.last[key] = n
	}
	g.mu.Unlock()
}

// UUID returns a random identifier for log-style records.
func UUID() string {
	return uuid.NewString()
}

// Short returns an upper-case 8 character random suffix, e.g. for serial-like ids.
func Short() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
