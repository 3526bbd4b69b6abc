package numerator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "bartally/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier emulates the sys_sequences upsert arithmetic, one counter per
// sequence key, so strict, cached and set paths all behave like the real table.
type mockQuerier struct {
	mu    sync.Mutex
	vals  map[string]int64
	calls int
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{vals: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	key := fmt.Sprint(args[0])
	if len(args) > 1 {
		if year, ok := args[1].(int); ok {
			// Standard schema keys on (sequence_type, year)
			key = fmt.Sprintf("%s|%d", key, year)
		}
	}

	switch {
	case strings.Contains(sql, "current_val + $2"):
		m.vals[key] += args[1].(int64)
	case strings.Contains(sql, "current_val = $2"):
		m.vals[key] = args[1].(int64)
	default:
		m.vals[key]++
	}
	return &mockRow{val: m.vals[key]}
}

var august = time.Date(2026, time.August, 23, 12, 0, 0, 0, time.UTC)

func TestGetNextNumberStrict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ST")

	num, err := svc.GetNextNumber(ctx, cfg, nil, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ST-2026-00001" {
		t.Errorf("expected ST-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ST-2026-00002" {
		t.Errorf("expected ST-2026-00002, got %s", num)
	}

	// A new year starts its own sequence
	num, err = svc.GetNextNumber(ctx, cfg, nil, august.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ST-2027-00001" {
		t.Errorf("expected ST-2027-00001, got %s", num)
	}
}

func TestGetNextNumberCached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ORD")
	opts := &corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	}

	// First call reserves 1..10 in one round trip
	num, err := svc.GetNextNumber(ctx, cfg, opts, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00001" {
		t.Errorf("expected ORD-2026-00001, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected 1 DB call, got %d", q.calls)
	}
	if q.vals["ORD_2026"] != 10 {
		t.Errorf("expected DB value 10, got %d", q.vals["ORD_2026"])
	}

	// Second call is served from memory
	num, err = svc.GetNextNumber(ctx, cfg, opts, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00002" {
		t.Errorf("expected ORD-2026-00002, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected no extra DB call, got %d", q.calls)
	}

	// Exhaust the range; the next call reserves 11..20
	for i := 0; i < 8; i++ {
		if _, err := svc.GetNextNumber(ctx, cfg, opts, august); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	num, err = svc.GetNextNumber(ctx, cfg, opts, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00011" {
		t.Errorf("expected ORD-2026-00011, got %s", num)
	}
	if q.vals["ORD_2026"] != 20 {
		t.Errorf("expected DB value 20, got %d", q.vals["ORD_2026"])
	}
}

func TestSetNextNumberInvalidatesCache(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("INV")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	if _, err := svc.GetNextNumber(ctx, cfg, opts, august); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.SetNextNumber(ctx, cfg, august, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The cached 2..10 range is gone; numbering resumes from the set value
	num, err := svc.GetNextNumber(ctx, cfg, opts, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00101" {
		t.Errorf("expected INV-2026-00101, got %s", num)
	}
}

func TestGetNextNumberConcurrent(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := corenumerator.DefaultConfig("CNT")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 7}

	const workers = 20
	const perWorker = 5

	out := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				num, err := svc.GetNextNumber(context.Background(), cfg, opts, august)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				out <- num
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[string]bool, workers*perWorker)
	for num := range out {
		if seen[num] {
			t.Errorf("duplicate number issued: %s", num)
		}
		seen[num] = true
	}
	if len(seen) != workers*perWorker {
		t.Errorf("expected %d distinct numbers, got %d", workers*perWorker, len(seen))
	}
}

func TestFormatWithoutYear(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := corenumerator.Config{Prefix: "DOC", PadWidth: 3, ResetPeriod: "never"}

	num, err := svc.GetNextNumber(context.Background(), cfg, nil, august)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "DOC-001" {
		t.Errorf("expected DOC-001, got %s", num)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"ST-2026-00042", 42},
		{"DOC-001", 1},
		{"garbage", -1},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
