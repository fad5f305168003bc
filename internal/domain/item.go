package domain

import "fmt"

// Item is a read-only copy of a catalog product.
type Item struct {
	ID          *int64  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// HasID reports whether the item carries a catalog identifier.
func (i Item) HasID() bool { return i.ID != nil }

// DocumentID returns the index key for the item ("product_<id>").
// Items without identifier have no key.
func (i Item) DocumentID() (string, bool) {
	if i.ID == nil {
		return "", false
	}
	return fmt.Sprintf("product_%d", *i.ID), true
}

// EmbeddingText renders the sentence stored and embedded for the item.
// Missing fields fall back to fixed placeholders.
func (i Item) EmbeddingText() string {
	name := i.Name
	if name == "" {
		name = "N/A"
	}
	description := i.Description
	if description == "" {
		description = "Aucune description"
	}
	category := i.Category
	if category == "" {
		category = "Non catégorisé"
	}
	return fmt.Sprintf(
		"Produit: %s. Description: %s. Catégorie: %s. Prix: %.2f €. Stock: %d unités.",
		name, description, category, i.Price, i.Quantity,
	)
}

// Clone returns a deep copy so callers cannot mutate indexed items.
func (i Item) Clone() Item {
	c := i
	if i.ID != nil {
		id := *i.ID
		c.ID = &id
	}
	return c
}
