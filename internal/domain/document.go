package domain

// Document is an indexed unit: text, its embedding, and the optional source item.
// Immutable value object; a refresh stores a new Document under the same id.
type Document struct {
	id     string
	text   string
	vector []float64
	item   *Item
}

// NewDocument creates a Document. The vector and item are copied.
func NewDocument(id, text string, vector []float64, item *Item) Document {
	var it *Item
	if item != nil {
		c := item.Clone()
		it = &c
	}
	return Document{
		id:     id,
		text:   text,
		vector: cloneVector(vector),
		item:   it,
	}
}

// ID returns the document key.
func (d Document) ID() string { return d.id }

// Text returns the indexed text.
func (d Document) Text() string { return d.text }

// Vector returns a copy of the embedding.
func (d Document) Vector() []float64 { return cloneVector(d.vector) }

// VectorView returns the embedding without copying. Callers must not modify it.
func (d Document) VectorView() []float64 { return d.vector }

// Item returns a copy of the source item, if any.
func (d Document) Item() (Item, bool) {
	if d.item == nil {
		return Item{}, false
	}
	return d.item.Clone(), true
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
