package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/embedding"
	"github.com/kailas-cloud/catalograg/internal/index"
	"github.com/kailas-cloud/catalograg/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	queryuc "github.com/kailas-cloud/catalograg/internal/usecase/query"
	usageuc "github.com/kailas-cloud/catalograg/internal/usecase/usage"
)

// --- Mocks ---

type mockRefresher struct {
	idx   *index.Index
	items []domain.Item
	err   error
}

func (m *mockRefresher) RefreshNow(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.idx.ReplaceAll(m.items), nil
}

type mockCompleter struct {
	text string
}

func (m *mockCompleter) Complete(context.Context, domain.CompletionRequest) (domain.CompletionResult, error) {
	return domain.CompletionResult{Text: m.text, TotalTokens: 77}, nil
}

func ptr(v int64) *int64 { return &v }

func testItems() []domain.Item {
	return []domain.Item{
		{ID: ptr(1), Name: "Casque Audio Pro", Description: "Casque sans fil bluetooth", Category: "Audio", Price: 149.9, Quantity: 12},
		{ID: ptr(2), Name: "Montre connectée", Description: "Montre populaire", Category: "Accessoire", Price: 199, Quantity: 4},
		{ID: ptr(3), Name: "Livre", Description: "Livre populaire", Category: "Livre", Price: 20, Quantity: 9},
	}
}

type testEnv struct {
	router    http.Handler
	idx       *index.Index
	refresher *mockRefresher
}

func newTestEnv(t *testing.T, gen queryuc.Generator) *testEnv {
	t.Helper()

	idx := index.New(embedding.New(nil), zap.NewNop())
	idx.ReplaceAll(testItems())

	if gen == nil {
		gen = generation.New(nil, generation.Config{}, zap.NewNop())
	}
	ref := &mockRefresher{idx: idx}
	q := queryuc.New(idx, gen, ref, 5, zap.NewNop())
	h := healthuc.New(idx, nil)

	r := chi.NewRouter()
	NewServer(q, h, Limits{DefaultRecommend: 2, MaxRecommend: 3}, zap.NewNop()).Register(r)

	return &testEnv{router: r, idx: idx, refresher: ref}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// --- Tests ---

func TestAnswer_Fallback(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/api/v1/answer", `{"query":"casque sans fil"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Answer-Source") != generation.SourceFallback {
		t.Errorf("expected fallback source header, got %q", rr.Header().Get("X-Answer-Source"))
	}
	resp := decode[AnswerResponse](t, rr)
	if !strings.Contains(resp.Answer, "Casque Audio Pro") {
		t.Errorf("expected headphones in the answer, got %q", resp.Answer)
	}
}

func TestAnswer_RemoteHeaders(t *testing.T) {
	gen := generation.New(&mockCompleter{text: "Notre casque est parfait."}, generation.Config{Model: "m"}, zap.NewNop())
	env := newTestEnv(t, gen)

	rr := env.do(http.MethodPost, "/api/v1/answer", `{"query":"casque"}`)

	if rr.Header().Get("X-Answer-Source") != generation.SourceRemote {
		t.Errorf("expected remote source, got %q", rr.Header().Get("X-Answer-Source"))
	}
	if rr.Header().Get("X-Generation-Tokens") != "77" {
		t.Errorf("expected 77 tokens, got %q", rr.Header().Get("X-Generation-Tokens"))
	}
	if resp := decode[AnswerResponse](t, rr); resp.Answer != "Notre casque est parfait." {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
}

func TestAnswer_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
		code ErrorResponseCode
	}{
		{"invalid json", `{"query":`, ErrorResponseCodeBadRequest},
		{"empty query", `{"query":"   "}`, ErrorResponseCodeValidationFailed},
		{"too long", `{"query":"` + strings.Repeat("a", maxQueryLength+1) + `"}`, ErrorResponseCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/v1/answer", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Code != tt.code {
				t.Errorf("got code %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestRecommendations_LimitDefaultsAndCap(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		target string
		limit  int
	}{
		{"/api/v1/recommendations?q=populaire", 2},
		{"/api/v1/recommendations?q=populaire&limit=1", 1},
		{"/api/v1/recommendations?q=populaire&limit=100", 3},
		{"/api/v1/recommendations", 2},
	}

	for _, tt := range tests {
		rr := env.do(http.MethodGet, tt.target, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: got %d", tt.target, rr.Code)
		}
		resp := decode[ItemListResponse](t, rr)
		if resp.Limit != tt.limit {
			t.Errorf("%s: expected limit %d, got %d", tt.target, tt.limit, resp.Limit)
		}
		if len(resp.Items) > tt.limit {
			t.Errorf("%s: expected at most %d items, got %d", tt.target, tt.limit, len(resp.Items))
		}
		for _, it := range resp.Items {
			if it.ID == 0 {
				t.Errorf("%s: item without id", tt.target)
			}
		}
	}
}

func TestRecommendations_InvalidLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, limit := range []string{"0", "-1", "abc"} {
		rr := env.do(http.MethodGet, "/api/v1/recommendations?q=x&limit="+limit, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: got %d, want 400", limit, rr.Code)
		}
	}
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodGet, "/api/v1/documents", "")

	resp := decode[DocumentListResponse](t, rr)
	if resp.Total != 3 || len(resp.Items) != 3 {
		t.Fatalf("expected 3 documents, got %d", resp.Total)
	}
	if resp.Items[0].ID != "product_1" || resp.Items[0].Item == nil || resp.Items[0].Item.Name != "Casque Audio Pro" {
		t.Errorf("unexpected first document %+v", resp.Items[0])
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodGet, "/api/v1/search?q=casque+sans+fil&k=2", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[SearchResultListResponse](t, rr)
	if len(resp.Items) != 2 || resp.K != 2 {
		t.Fatalf("expected 2 results, got %d (k=%d)", len(resp.Items), resp.K)
	}
	if resp.Items[0].ID != "product_1" || resp.Items[0].Score <= 0 {
		t.Errorf("expected product_1 first with positive score, got %+v", resp.Items[0])
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	if rr := env.do(http.MethodGet, "/api/v1/search", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, nil)
	env.refresher.items = []domain.Item{{ID: ptr(4), Name: "Tablette"}}

	rr := env.do(http.MethodPost, "/api/v1/refresh", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[RefreshResponse](t, rr)
	if resp.Upserted != 1 || resp.Documents != 4 {
		t.Errorf("unexpected refresh response %+v", resp)
	}
}

func TestRefresh_CatalogDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.refresher.err = errors.Join(domain.ErrCatalogUnavailable, errors.New("dial tcp"))

	rr := env.do(http.MethodPost, "/api/v1/refresh", "")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorResponseCodeCatalogUnavailable {
		t.Errorf("unexpected code %s", resp.Code)
	}
}

func TestGreetingAndHelp(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := decode[TextResponse](t, env.do(http.MethodGet, "/api/v1/greeting?name=Sam", ""))
	if !strings.HasPrefix(resp.Text, "Bonjour Sam!") {
		t.Errorf("unexpected greeting %q", resp.Text)
	}

	resp = decode[TextResponse](t, env.do(http.MethodGet, "/api/v1/help", ""))
	if !strings.Contains(resp.Text, "/help") {
		t.Errorf("unexpected help %q", resp.Text)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Documents != 3 || resp.Checks["index"] != "ok" || resp.Checks["llm"] != "disabled" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	if rr := env.do(http.MethodGet, "/api/v1/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/answer", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", rr.Code)
	}
}

func TestUsage(t *testing.T) {
	idx := index.New(embedding.New(nil), zap.NewNop())
	q := queryuc.New(idx, generation.New(nil, generation.Config{}, zap.NewNop()), nil, 5, zap.NewNop())
	bt := generation.NewBudgetTracker("openai", 1000, 0, generation.BudgetActionReject, zap.NewNop())
	bt.Record(250)

	r := chi.NewRouter()
	NewServer(q, healthuc.New(idx, nil), Limits{}, zap.NewNop()).
		WithUsage(usageuc.New(bt, "openai")).
		Register(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage?period=day", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[UsageResponse](t, rr)
	if resp.Period != "day" || resp.Provider != "openai" || resp.Tokens != 250 {
		t.Errorf("unexpected usage %+v", resp)
	}
	if resp.Budget.TokensLimit != 1000 || resp.Budget.TokensRemaining != 750 || resp.Budget.IsExhausted {
		t.Errorf("unexpected budget %+v", resp.Budget)
	}
	if _, err := time.Parse(time.RFC3339, resp.PeriodEnd); err != nil {
		t.Errorf("period_end %q: %v", resp.PeriodEnd, err)
	}
}

func TestUsage_NotEnabled(t *testing.T) {
	env := newTestEnv(t, nil)

	if rr := env.do(http.MethodGet, "/api/v1/usage", ""); rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}
