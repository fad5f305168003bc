package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/embedding"
	"github.com/kailas-cloud/catalograg/internal/index"
	"github.com/kailas-cloud/catalograg/internal/usecase/generation"
)

// --- Mocks ---

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _ domain.CompletionRequest) (domain.CompletionResult, error) {
	<-ctx.Done()
	return domain.CompletionResult{}, ctx.Err()
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, string, string) string {
	panic("boom")
}

type recordingGenerator struct {
	query   string
	context string
}

func (r *recordingGenerator) Generate(_ context.Context, q, productContext string) string {
	r.query, r.context = q, productContext
	return "answer"
}

type mockRefresher struct {
	n   int
	err error
}

func (m *mockRefresher) RefreshNow(context.Context) (int, error) { return m.n, m.err }

func ptr(v int64) *int64 { return &v }

func catalog() []domain.Item {
	return []domain.Item{
		{ID: ptr(1), Name: "Casque Audio Pro", Description: "Casque sans fil bluetooth", Category: "Audio", Price: 149.9, Quantity: 12},
		{ID: ptr(2), Name: "Chaussure de course", Description: "Chaussure légère", Category: "Sport", Price: 89, Quantity: 30},
		{ID: ptr(3), Name: "Livre de cuisine", Description: "Recettes maison", Category: "Livre", Price: 25, Quantity: 8},
		{ID: ptr(4), Name: "Smartphone X", Description: "Téléphone populaire", Category: "Électronique", Price: 699, Quantity: 5},
		{ID: ptr(5), Name: "Montre connectée", Description: "Montre sport populaire", Category: "Accessoire", Price: 199, Quantity: 14},
		{ID: ptr(6), Name: "Jouet en bois", Description: "Jouet pour enfant", Category: "Jouet", Price: 19.9, Quantity: 40},
		{ID: ptr(7), Name: "Tablette", Description: "Tablette meilleur prix", Category: "Électronique", Price: 329, Quantity: 3},
	}
}

func newIndex(items []domain.Item) *index.Index {
	idx := index.New(embedding.New(nil), zap.NewNop())
	idx.ReplaceAll(items)
	return idx
}

func offlineGenerator() *generation.Generator {
	return generation.New(nil, generation.Config{}, zap.NewNop())
}

// --- Tests ---

func TestAnswer_EmptyIndexReturnsNotFound(t *testing.T) {
	svc := New(newIndex(nil), offlineGenerator(), nil, 5, zap.NewNop())

	if got := svc.Answer(context.Background(), "bonjour"); got != generation.NotFoundAnswer {
		t.Errorf("expected not-found answer, got %q", got)
	}
}

func TestAnswer_OfflineListsRetrievedProducts(t *testing.T) {
	svc := New(newIndex(catalog()), offlineGenerator(), nil, 5, zap.NewNop())

	got := svc.Answer(context.Background(), "casque sans fil")

	if !strings.HasPrefix(got, "Voici les produits que j'ai trouvés pour votre recherche:\n\n1. Produit: Casque Audio Pro.") {
		t.Errorf("expected headphones ranked first in the fallback, got %q", got)
	}
}

func TestAnswer_RemoteTimeoutUsesTemplate(t *testing.T) {
	gen := generation.New(blockingCompleter{}, generation.Config{
		Provider: "openai",
		Model:    "gpt-3.5-turbo",
		Timeout:  20 * time.Millisecond,
	}, zap.NewNop())
	svc := New(newIndex(catalog()), gen, nil, 5, zap.NewNop())

	got := svc.Answer(context.Background(), "casque sans fil")

	if got == ApologyAnswer {
		t.Fatal("timeout must not produce the apology")
	}
	if !strings.HasPrefix(got, "Voici les produits que j'ai trouvés") {
		t.Errorf("expected templated fallback, got %q", got)
	}
}

func TestAnswer_PanicReturnsApology(t *testing.T) {
	svc := New(newIndex(catalog()), panickingGenerator{}, nil, 5, zap.NewNop())

	if got := svc.Answer(context.Background(), "casque"); got != ApologyAnswer {
		t.Errorf("expected apology, got %q", got)
	}
}

func TestAnswer_PassesQueryAndContext(t *testing.T) {
	gen := &recordingGenerator{}
	svc := New(newIndex(catalog()), gen, nil, 2, zap.NewNop())

	svc.Answer(context.Background(), "casque sans fil")

	if gen.query != "casque sans fil" {
		t.Errorf("expected raw query, got %q", gen.query)
	}
	if !strings.HasPrefix(gen.context, "1. ") || strings.Count(gen.context, "\n") != 2 {
		t.Errorf("expected two numbered context lines, got %q", gen.context)
	}
}

func TestRecommend_AtMostLimitWithIDs(t *testing.T) {
	svc := New(newIndex(catalog()), offlineGenerator(), nil, 5, zap.NewNop())

	items := svc.Recommend(context.Background(), "populaire", 5)

	if len(items) > 5 {
		t.Fatalf("expected at most 5 items, got %d", len(items))
	}
	for _, it := range items {
		if it.ID == nil {
			t.Fatal("recommendation without id")
		}
	}
}

func TestRecommend_DropsDocumentsWithoutItem(t *testing.T) {
	idx := newIndex(nil)
	idx.Upsert("note_1", "produit populaire", nil)
	idx.Upsert("product_9", "produit populaire", &domain.Item{Name: "sans id"})
	idx.Upsert("product_1", "produit populaire", &domain.Item{ID: ptr(1), Name: "ok"})
	svc := New(idx, offlineGenerator(), nil, 5, zap.NewNop())

	items := svc.Recommend(context.Background(), "populaire", 10)

	if len(items) != 1 || *items[0].ID != 1 {
		t.Errorf("expected only the item with id, got %+v", items)
	}
}

func TestRecommend_NonPositiveLimit(t *testing.T) {
	svc := New(newIndex(catalog()), offlineGenerator(), nil, 5, zap.NewNop())

	if items := svc.Recommend(context.Background(), "populaire", 0); len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestAllDocuments(t *testing.T) {
	svc := New(newIndex(catalog()), offlineGenerator(), nil, 5, zap.NewNop())

	if got := len(svc.AllDocuments()); got != len(catalog()) {
		t.Errorf("expected %d documents, got %d", len(catalog()), got)
	}
	if svc.DocumentCount() != len(catalog()) {
		t.Errorf("expected count %d, got %d", len(catalog()), svc.DocumentCount())
	}
}

func TestSearchScored_Ordered(t *testing.T) {
	svc := New(newIndex(catalog()), offlineGenerator(), nil, 5, zap.NewNop())

	res := svc.SearchScored("casque sans fil", 3)
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if res[0].Document.ID() != "product_1" {
		t.Errorf("expected product_1 first, got %s", res[0].Document.ID())
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Errorf("scores not non-increasing at %d", i)
		}
	}
}

func TestRefreshNow(t *testing.T) {
	svc := New(newIndex(nil), offlineGenerator(), &mockRefresher{n: 4}, 5, zap.NewNop())

	n, err := svc.RefreshNow(context.Background())
	if err != nil || n != 4 {
		t.Errorf("expected 4, nil; got %d, %v", n, err)
	}
}

func TestRefreshNow_Error(t *testing.T) {
	cause := errors.Join(domain.ErrCatalogUnavailable, errors.New("dial tcp"))
	svc := New(newIndex(nil), offlineGenerator(), &mockRefresher{err: cause}, 5, zap.NewNop())

	if _, err := svc.RefreshNow(context.Background()); !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestRefreshNow_NoRefresher(t *testing.T) {
	svc := New(newIndex(nil), offlineGenerator(), nil, 5, zap.NewNop())

	if _, err := svc.RefreshNow(context.Background()); err == nil {
		t.Error("expected error without refresher")
	}
}

func TestGreetingAndHelp(t *testing.T) {
	svc := New(newIndex(nil), offlineGenerator(), nil, 5, zap.NewNop())

	if !strings.HasPrefix(svc.Greeting("Alex"), "Bonjour Alex! 👋") {
		t.Errorf("unexpected greeting %q", svc.Greeting("Alex"))
	}
	if !strings.HasPrefix(svc.Greeting(""), "Bonjour ! 👋") {
		t.Errorf("unexpected anonymous greeting %q", svc.Greeting(""))
	}
	if !strings.Contains(svc.Help(), "/search [terme]") {
		t.Error("help must list the search command")
	}
}
