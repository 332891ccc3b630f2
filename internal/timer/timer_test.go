package timer

import (
	"strings"
	"sync"
	"testing"

	"github.com/tinyrange/rv64kernel/internal/klog"
)

func TestAdvanceIncrementsTicks(t *testing.T) {
	tm := New(nil, 100_000, 100)
	for i := uint64(1); i <= 3; i++ {
		if got := tm.Advance(); got != i {
			t.Fatalf("Advance() = %d, want %d", got, i)
		}
	}
	if got := tm.Ticks(); got != 3 {
		t.Fatalf("Ticks() = %d, want 3", got)
	}
}

func TestBannerEveryN(t *testing.T) {
	var buf strings.Builder
	var mu sync.Mutex
	log := klog.New(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}))

	tm := New(log, 100_000, 5)
	for i := 0; i < 5; i++ {
		tm.Advance()
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "5 ticks") {
		t.Fatalf("output = %q, want a banner mentioning 5 ticks", buf.String())
	}
}

func TestTimebaseRecorded(t *testing.T) {
	tm := New(nil, 100_000, 100)
	if got := tm.Timebase(); got != 100_000 {
		t.Fatalf("Timebase() = %d, want 100000", got)
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
