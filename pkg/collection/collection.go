// Package collection provides a generic ordered entity store with declared
// named indexes. Lookups are O(1) once indexes are built; mutations mark
// indexes dirty and rebuilds happen lazily on the next read. Batch scopes
// coalesce any number of mutations into a single rebuild.
package collection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNestedBatch is returned when Batch is called from inside an active
// batch scope. Batch mode is deliberately non-reentrant.
var ErrNestedBatch = errors.New("collection: batch mode is not reentrant")

// ConflictError reports duplicate keys discovered while rebuilding a unique
// index. The caller resolves it by renaming or removing one of the listed
// items before the next read.
type ConflictError struct {
	Index   string
	Key     string
	ItemIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("collection: unique index %q has %d items with key %q: %s",
		e.Index, len(e.ItemIDs), e.Key, strings.Join(e.ItemIDs, ", "))
}

// IndexSpec declares a named index over the collection. Key extracts the
// index key from an item; items with an empty key are left out of the
// index. Unique indexes map a key to exactly one item and surface
// ConflictError when duplicates appear.
type IndexSpec[T any] struct {
	Name   string
	Key    func(T) string
	Unique bool
}

// Collection is an insertion-ordered store of one entity kind. It is not
// safe for concurrent use; callers needing concurrency serialize access
// externally.
type Collection[T any] struct {
	items []T
	id    func(T) string
	specs []IndexSpec[T]

	unique    map[string]map[string]T
	multi     map[string]map[string][]T
	conflicts map[string]*ConflictError
	positions map[string]int

	dirty    bool
	batching bool
	rebuilds int
}

// New creates a collection. id extracts each item's identity (its uuid) and
// backs Remove and conflict reporting; an index named "uuid" over the same
// function is declared implicitly. The empty indexes start built, so a read
// inside a batch scope that opens before any rebuild sees stale-but-valid
// maps instead of failing.
func New[T any](id func(T) string, specs ...IndexSpec[T]) *Collection[T] {
	all := append([]IndexSpec[T]{{Name: "uuid", Key: id, Unique: true}}, specs...)
	c := &Collection[T]{
		id:        id,
		specs:     all,
		unique:    make(map[string]map[string]T),
		multi:     make(map[string]map[string][]T),
		conflicts: make(map[string]*ConflictError),
		positions: make(map[string]int),
	}
	for _, spec := range all {
		c.multi[spec.Name] = make(map[string][]T)
		if spec.Unique {
			c.unique[spec.Name] = make(map[string]T)
		}
	}
	return c
}

// Len returns the number of stored items.
func (c *Collection[T]) Len() int { return len(c.items) }

// Items returns the items in insertion order. The returned slice is a copy;
// the items themselves are shared.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Add appends an item in O(1) and marks every index dirty. Uniqueness is
// not validated here; duplicates surface as ConflictError on the next read.
// Outside a batch scope the indexes are rebuilt immediately so that point
// reads stay O(1); inside a batch the rebuild is deferred to scope exit.
func (c *Collection[T]) Add(item T) {
	c.items = append(c.items, item)
	c.dirty = true
	if !c.batching {
		c.rebuild()
	}
}

// Remove deletes the item with the given identity. Returns false when no
// such item exists.
func (c *Collection[T]) Remove(id string) bool {
	if c.dirty && !c.batching {
		c.rebuild()
	}
	pos, ok := c.positions[id]
	if !ok {
		// Positions may be stale inside a batch scope; fall back to a scan.
		pos = -1
		for i, it := range c.items {
			if c.id(it) == id {
				pos = i
				break
			}
		}
		if pos < 0 {
			return false
		}
	}
	copy(c.items[pos:], c.items[pos+1:])
	c.items = c.items[:len(c.items)-1]
	c.dirty = true
	if !c.batching {
		c.rebuild()
	}
	return true
}

// Get returns the item stored under key in the named unique index,
// rebuilding indexes first when they are dirty. A duplicate key in the
// index surfaces as ConflictError.
func (c *Collection[T]) Get(index, key string) (T, bool, error) {
	var zero T
	if err := c.ensure(index); err != nil {
		return zero, false, err
	}
	idx, ok := c.unique[index]
	if !ok {
		return zero, false, fmt.Errorf("collection: no unique index %q", index)
	}
	item, ok := idx[key]
	return item, ok, nil
}

// GetAll returns every item stored under key in the named non-unique index,
// in insertion order.
func (c *Collection[T]) GetAll(index, key string) ([]T, error) {
	if err := c.ensure(index); err != nil {
		return nil, err
	}
	idx, ok := c.multi[index]
	if !ok {
		return nil, fmt.Errorf("collection: no index %q", index)
	}
	return idx[key], nil
}

// Filter returns the items matching pred, in insertion order.
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	var out []T
	for _, it := range c.items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// Invalidate marks all indexes dirty. Entity setters call this after
// changing a field that an index is keyed on.
func (c *Collection[T]) Invalidate() {
	c.dirty = true
}

// Batch runs fn with index rebuilds suppressed; exactly one rebuild runs
// when the scope exits, including on error paths. Nesting returns
// ErrNestedBatch without running fn.
func (c *Collection[T]) Batch(fn func() error) error {
	if c.batching {
		return ErrNestedBatch
	}
	c.batching = true
	defer func() {
		c.batching = false
		c.rebuild()
	}()
	return fn()
}

// Rebuilds returns the number of full index rebuilds performed. Used by
// tests to assert batch coalescing.
func (c *Collection[T]) Rebuilds() int { return c.rebuilds }

func (c *Collection[T]) ensure(index string) error {
	if c.dirty && !c.batching {
		c.rebuild()
	}
	if err, ok := c.conflicts[index]; ok && err != nil {
		return err
	}
	return nil
}

// rebuild scans all items once and reconstructs every declared index.
// Duplicate keys in unique indexes are recorded and reported by subsequent
// reads of that index; the first item wins the slot so unrelated lookups
// keep working.
func (c *Collection[T]) rebuild() {
	c.rebuilds++
	c.dirty = false
	c.unique = make(map[string]map[string]T)
	c.multi = make(map[string]map[string][]T)
	c.conflicts = make(map[string]*ConflictError)
	c.positions = make(map[string]int, len(c.items))

	for i, it := range c.items {
		c.positions[c.id(it)] = i
	}

	for _, spec := range c.specs {
		multi := make(map[string][]T)
		for _, it := range c.items {
			key := spec.Key(it)
			if key == "" {
				continue
			}
			multi[key] = append(multi[key], it)
		}
		c.multi[spec.Name] = multi

		if !spec.Unique {
			continue
		}
		uni := make(map[string]T, len(multi))
		for key, items := range multi {
			uni[key] = items[0]
			if len(items) > 1 && c.conflicts[spec.Name] == nil {
				ids := make([]string, len(items))
				for j, it := range items {
					ids[j] = c.id(it)
				}
				c.conflicts[spec.Name] = &ConflictError{
					Index:   spec.Name,
					Key:     key,
					ItemIDs: ids,
				}
			}
		}
		c.unique[spec.Name] = uni
	}
}
