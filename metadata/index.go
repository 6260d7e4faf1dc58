package metadata

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index combines metadata storage with an inverted equality index backed by
// Roaring Bitmaps.
//
// Structure:
//   - Primary storage: map[uint32]Metadata (document by row ID)
//   - Inverted index: field -> valueKey -> bitmap of row IDs
//
// Equality predicates compile to bitmap intersections; numeric comparisons
// are evaluated per candidate against the stored document.
type Index struct {
	mu        sync.RWMutex
	documents map[uint32]Metadata
	inverted  map[string]map[string]*roaring.Bitmap
}

// NewIndex creates a new metadata index.
func NewIndex() *Index {
	return &Index{
		documents: make(map[uint32]Metadata),
		inverted:  make(map[string]map[string]*roaring.Bitmap),
	}
}

// Set stores metadata for a row ID, replacing any prior document.
func (ix *Index) Set(id uint32, doc Metadata) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, exists := ix.documents[id]; exists {
		ix.removeLocked(id, old)
	}
	if doc == nil {
		delete(ix.documents, id)
		return
	}

	ix.documents[id] = doc
	for key, value := range doc {
		vk := valueKey(value)
		valueMap, ok := ix.inverted[key]
		if !ok {
			valueMap = make(map[string]*roaring.Bitmap)
			ix.inverted[key] = valueMap
		}
		bm, ok := valueMap[vk]
		if !ok {
			bm = roaring.New()
			valueMap[vk] = bm
		}
		bm.Add(id)
	}
}

// Get retrieves metadata for a row ID.
func (ix *Index) Get(id uint32) (Metadata, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, ok := ix.documents[id]
	return doc, ok
}

// Delete removes metadata for a row ID.
func (ix *Index) Delete(id uint32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if doc, exists := ix.documents[id]; exists {
		ix.removeLocked(id, doc)
		delete(ix.documents, id)
	}
}

// Len returns the number of documents in the index.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.documents)
}

// Clear removes all documents.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.documents = make(map[uint32]Metadata)
	ix.inverted = make(map[string]map[string]*roaring.Bitmap)
}

// CompileFilter turns a filter set into a row predicate.
//
// Equality conditions are intersected via the inverted bitmaps first; the
// remaining comparison conditions fall back to per-document evaluation.
// Returns nil for an empty filter set (no filtering).
func (ix *Index) CompileFilter(fs *FilterSet) func(id uint32) bool {
	if fs.Empty() {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var eqBitmap *roaring.Bitmap
	comparisons := make([]Filter, 0, len(fs.Filters))

	for _, f := range fs.Filters {
		if f.Operator != OpEqual {
			comparisons = append(comparisons, f)
			continue
		}

		bm := ix.inverted[f.Key][valueKey(f.Value)]
		if bm == nil {
			// No document carries this value; nothing can match.
			empty := roaring.New()
			eqBitmap = empty
			break
		}
		if eqBitmap == nil {
			eqBitmap = bm.Clone()
		} else {
			eqBitmap.And(bm)
		}
	}

	return func(id uint32) bool {
		if eqBitmap != nil && !eqBitmap.Contains(id) {
			return false
		}
		if len(comparisons) == 0 {
			return true
		}
		ix.mu.RLock()
		doc, ok := ix.documents[id]
		ix.mu.RUnlock()
		if !ok {
			return false
		}
		for i := range comparisons {
			if !comparisons[i].Matches(doc) {
				return false
			}
		}
		return true
	}
}

func (ix *Index) removeLocked(id uint32, doc Metadata) {
	for key, value := range doc {
		valueMap, ok := ix.inverted[key]
		if !ok {
			continue
		}
		vk := valueKey(value)
		if bm, ok := valueMap[vk]; ok {
			bm.Remove(id)
			if bm.IsEmpty() {
				delete(valueMap, vk)
			}
		}
		if len(valueMap) == 0 {
			delete(ix.inverted, key)
		}
	}
}

// valueKey produces a type-tagged string key for the inverted index.
// Numeric values share one tag so 1 and 1.0 land in the same posting list,
// matching compareEqual semantics.
func valueKey(v any) string {
	if f, ok := asFloat64(v); ok {
		return fmt.Sprintf("n:%g", f)
	}
	switch x := v.(type) {
	case string:
		return "s:" + x
	case bool:
		return fmt.Sprintf("b:%t", x)
	case []any:
		key := "a:"
		for _, item := range x {
			key += valueKey(item) + ","
		}
		return key
	default:
		return fmt.Sprintf("x:%v", x)
	}
}
