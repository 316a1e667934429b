package collection

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	uuid string
	ref  string
	lib  string
}

func newParts() *Collection[*part] {
	return New(
		func(p *part) string { return p.uuid },
		IndexSpec[*part]{Name: "reference", Key: func(p *part) string { return p.ref }, Unique: true},
		IndexSpec[*part]{Name: "lib_id", Key: func(p *part) string { return p.lib }, Unique: false},
	)
}

func TestAddAndGet(t *testing.T) {
	c := newParts()
	c.Add(&part{uuid: "u1", ref: "R1", lib: "Device:R"})
	c.Add(&part{uuid: "u2", ref: "C1", lib: "Device:C"})

	got, ok, err := c.Get("reference", "R1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.uuid)

	_, ok, err = c.Get("reference", "R99")
	require.NoError(t, err)
	assert.False(t, ok)

	byLib, err := c.GetAll("lib_id", "Device:R")
	require.NoError(t, err)
	require.Len(t, byLib, 1)
	assert.Equal(t, "R1", byLib[0].ref)
}

func TestRemove(t *testing.T) {
	c := newParts()
	c.Add(&part{uuid: "u1", ref: "R1"})
	c.Add(&part{uuid: "u2", ref: "R2"})

	require.True(t, c.Remove("u1"))
	assert.False(t, c.Remove("u1"))
	assert.Equal(t, 1, c.Len())

	_, ok, err := c.Get("reference", "R1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertionOrderPreserved(t *testing.T) {
	c := newParts()
	for i := 0; i < 10; i++ {
		c.Add(&part{uuid: fmt.Sprintf("u%d", i), ref: fmt.Sprintf("R%d", i)})
	}
	items := c.Items()
	require.Len(t, items, 10)
	for i, it := range items {
		assert.Equal(t, fmt.Sprintf("u%d", i), it.uuid)
	}
}

func TestUniqueConflictRaisedOnRead(t *testing.T) {
	c := newParts()
	// Duplicate references are accepted at add time.
	c.Add(&part{uuid: "u1", ref: "R1"})
	c.Add(&part{uuid: "u2", ref: "R1"})

	_, _, err := c.Get("reference", "R1")
	require.Error(t, err)

	conflict, ok := err.(*ConflictError)
	require.True(t, ok, "expected *ConflictError, got %T", err)
	assert.Equal(t, "reference", conflict.Index)
	assert.Equal(t, "R1", conflict.Key)
	assert.ElementsMatch(t, []string{"u1", "u2"}, conflict.ItemIDs)

	// Other indexes keep working while the conflict stands.
	_, ok2, err := c.Get("uuid", "u1")
	require.NoError(t, err)
	assert.True(t, ok2)

	// Resolving the conflict clears the error on the next read.
	c.Items()[1].ref = "R2"
	c.Invalidate()
	got, ok3, err := c.Get("reference", "R1")
	require.NoError(t, err)
	require.True(t, ok3)
	assert.Equal(t, "u1", got.uuid)
}

func TestBatchCoalescesRebuilds(t *testing.T) {
	const n = 100

	c := newParts()
	for i := 0; i < n; i++ {
		c.Add(&part{uuid: fmt.Sprintf("a%d", i), ref: fmt.Sprintf("RA%d", i)})
	}
	sequential := c.Rebuilds()
	require.GreaterOrEqual(t, sequential, n, "each add outside a batch rebuilds")

	c2 := newParts()
	err := c2.Batch(func() error {
		for i := 0; i < n; i++ {
			c2.Add(&part{uuid: fmt.Sprintf("b%d", i), ref: fmt.Sprintf("RB%d", i)})
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c2.Rebuilds(), "a batch scope rebuilds exactly once")
	assert.Equal(t, n, c2.Len())
}

func TestGetInsideFreshBatch(t *testing.T) {
	// A batch opened before any rebuild must not break reads; they see the
	// pre-batch (empty) index state rather than an error.
	c := newParts()
	err := c.Batch(func() error {
		c.Add(&part{uuid: "u1", ref: "R1"})

		_, ok, err := c.Get("reference", "R1")
		require.NoError(t, err)
		assert.False(t, ok, "deferred rebuild: the add is not yet visible")
		return nil
	})
	require.NoError(t, err)

	got, ok, err := c.Get("reference", "R1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.uuid)
}

func TestBatchNotReentrant(t *testing.T) {
	c := newParts()
	err := c.Batch(func() error {
		return c.Batch(func() error { return nil })
	})
	assert.ErrorIs(t, err, ErrNestedBatch)
}

func TestBatchRebuildsOnErrorPath(t *testing.T) {
	c := newParts()
	boom := fmt.Errorf("boom")
	err := c.Batch(func() error {
		c.Add(&part{uuid: "u1", ref: "R1"})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.Rebuilds(), "rebuild still runs when the scope fails")

	_, ok, lookupErr := c.Get("reference", "R1")
	require.NoError(t, lookupErr)
	assert.True(t, ok)
}

func TestLookupLatencyIndependentOfSize(t *testing.T) {
	if testing.Short() {
		t.Skip("latency property test")
	}
	const n = 10000

	c := newParts()
	require.NoError(t, c.Batch(func() error {
		for i := 0; i < n; i++ {
			c.Add(&part{uuid: fmt.Sprintf("u%d", i), ref: fmt.Sprintf("R%d", i)})
		}
		return nil
	}))

	// Warm the indexes, then time point lookups at both ends of the
	// insertion order. Indexed lookups must not scale with position.
	_, _, err := c.Get("uuid", "u0")
	require.NoError(t, err)

	lookup := func(key string) time.Duration {
		start := time.Now()
		for i := 0; i < 1000; i++ {
			_, ok, err := c.Get("uuid", key)
			require.NoError(t, err)
			require.True(t, ok)
		}
		return time.Since(start)
	}

	first := lookup("u0")
	last := lookup(fmt.Sprintf("u%d", n-1))

	// Generous bound: hash lookups at either end should be within an
	// order of magnitude of each other.
	assert.Less(t, last, first*10+time.Millisecond)
}

func TestFilterKeepsOrder(t *testing.T) {
	c := newParts()
	for i := 0; i < 6; i++ {
		lib := "Device:R"
		if i%2 == 1 {
			lib = "Device:C"
		}
		c.Add(&part{uuid: fmt.Sprintf("u%d", i), ref: fmt.Sprintf("X%d", i), lib: lib})
	}

	got := c.Filter(func(p *part) bool { return p.lib == "Device:R" })
	require.Len(t, got, 3)
	assert.Equal(t, []string{"u0", "u2", "u4"}, []string{got[0].uuid, got[1].uuid, got[2].uuid})
}
