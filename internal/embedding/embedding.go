// Package embedding turns text into fixed-length bag-of-terms vectors.
//
// Each vocabulary term occupies one dimension. A dimension is 1 when the
// lower-cased text contains the term as a substring, then the vector is
// L2-normalized. No stemming or weighting is applied, so the same text always
// yields a bit-identical vector.
package embedding

import (
	"math"
	"strings"
)

// defaultVocabulary is the ordered term list; position i is dimension i.
var defaultVocabulary = []string{
	"produit", "product", "prix", "price", "stock", "disponible", "available",
	"catégorie", "category", "description", "qualité", "quality", "nouveau", "new",
	"promotion", "sale", "discount", "remise", "livraison", "delivery", "gratuit", "free",
	"électronique", "electronics", "vêtement", "clothing", "maison", "home",
	"sport", "beauty", "beauté", "livre", "book", "jouet", "toy", "alimentaire", "food",
	"ordinateur", "computer", "téléphone", "phone", "tablette", "tablet",
	"accessoire", "accessory", "meilleur", "best", "populaire", "popular",
	"euro", "€", "cher", "expensive", "pas cher", "cheap", "abordable", "affordable",
	"audio", "casque", "headphone", "écouteur", "earbud", "sans fil", "wireless", "bluetooth",
	"montre", "watch", "chaussure", "shoe", "jeu", "game",
}

// Dimensions is the vector length produced by the default vocabulary.
var Dimensions = len(defaultVocabulary)

// Vocabulary returns a copy of the default vocabulary.
func Vocabulary() []string {
	out := make([]string, len(defaultVocabulary))
	copy(out, defaultVocabulary)
	return out
}

var defaultEmbedder = New(nil)

// Embed vectorizes text with the default vocabulary.
func Embed(text string) []float64 {
	return defaultEmbedder.Embed(text)
}

// Embedder vectorizes text over a fixed vocabulary. Safe for concurrent use.
type Embedder struct {
	terms []string
}

// New creates an Embedder. An empty vocabulary selects the default one.
// Terms are lower-cased once so matching is case-insensitive on both sides.
func New(vocabulary []string) *Embedder {
	if len(vocabulary) == 0 {
		vocabulary = defaultVocabulary
	}
	terms := make([]string, len(vocabulary))
	for i, t := range vocabulary {
		terms[i] = strings.ToLower(t)
	}
	return &Embedder{terms: terms}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return len(e.terms) }

// Embed returns the unit-normalized presence vector of text.
// Text matching no term yields the all-zero vector.
func (e *Embedder) Embed(text string) []float64 {
	vec := make([]float64, len(e.terms))
	lower := strings.ToLower(text)

	var sum float64
	for i, term := range e.terms {
		if term != "" && strings.Contains(lower, term) {
			vec[i] = 1
			sum++
		}
	}

	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|).
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	sim := dot / denom
	// float rounding can push unit vectors slightly past the bounds
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
