package completioncache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain"
)

// --- Mocks ---

type mockKVStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttls   map[string]time.Duration
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

var testReq = domain.CompletionRequest{
	SystemPrompt: "system",
	UserMessage:  "casque sans fil",
	Model:        "gpt-3.5-turbo",
	Temperature:  0.7,
	MaxTokens:    500,
}

// --- Tests ---

func TestCache_MissThenHit(t *testing.T) {
	ms := newMockKVStore()
	counter := newCounter()
	c := New(ms, "catalograg:", 10*time.Minute, counter, zap.NewNop())
	ctx := context.Background()

	if _, ok := c.Get(ctx, testReq); ok {
		t.Fatal("expected miss on empty store")
	}

	c.Put(ctx, testReq, domain.CompletionResult{Text: "Voici un casque", TotalTokens: 42})

	got, ok := c.Get(ctx, testReq)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if got.Text != "Voici un casque" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if got.TotalTokens != 0 {
		t.Errorf("cache hit must not report consumed tokens, got %d", got.TotalTokens)
	}

	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("expected 1 hit, got %f", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("expected 1 miss, got %f", v)
	}

	key := c.Key(testReq)
	if ms.ttls[key] != 10*time.Minute {
		t.Errorf("expected ttl 10m, got %v", ms.ttls[key])
	}
}

func TestCache_KeyDependsOnRequest(t *testing.T) {
	c := New(newMockKVStore(), "p:", time.Minute, nil, zap.NewNop())

	base := c.Key(testReq)
	if !strings.HasPrefix(base, "p:completion:") {
		t.Errorf("unexpected key prefix: %s", base)
	}

	variants := []domain.CompletionRequest{testReq, testReq, testReq, testReq}
	variants[0].Model = "gpt-4o-mini"
	variants[1].SystemPrompt = "other"
	variants[2].UserMessage = "autre question"
	variants[3].Temperature = 0.2

	for i, v := range variants {
		if c.Key(v) == base {
			t.Errorf("variant %d must produce a different key", i)
		}
	}
	if c.Key(testReq) != base {
		t.Error("key must be deterministic")
	}
}

func TestCache_StoreErrorsAreMisses(t *testing.T) {
	ms := newMockKVStore()
	ms.getErr = errors.New("conn refused")
	ms.setErr = errors.New("conn refused")
	c := New(ms, "p:", time.Minute, nil, zap.NewNop())

	c.Put(context.Background(), testReq, domain.CompletionResult{Text: "x"})
	if _, ok := c.Get(context.Background(), testReq); ok {
		t.Fatal("expected miss on store error")
	}
}

func TestCache_MalformedEntryIsMiss(t *testing.T) {
	ms := newMockKVStore()
	c := New(ms, "p:", time.Minute, nil, zap.NewNop())
	ms.data[c.Key(testReq)] = []byte("not json")

	if _, ok := c.Get(context.Background(), testReq); ok {
		t.Fatal("expected miss on malformed entry")
	}
}

func TestCache_EmptyTextNotStored(t *testing.T) {
	ms := newMockKVStore()
	c := New(ms, "p:", time.Minute, nil, zap.NewNop())

	c.Put(context.Background(), testReq, domain.CompletionResult{})
	if len(ms.data) != 0 {
		t.Fatal("empty completion must not be cached")
	}
}
