package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/flowsched/internal/chunk"
)

func TestPutAdvancesContiguousFrontier(t *testing.T) {
	s := New("a", []GeneratorID{1})
	assert.Equal(t, chunk.NoIndex, s.Contiguous())

	s.Put(1, chunk.Of(10))
	assert.Equal(t, chunk.NoIndex, s.Contiguous(), "gap at 0, frontier must not advance")

	s.Put(0, chunk.Of(9))
	assert.Equal(t, chunk.Index(1), s.Contiguous())

	s.Put(2, chunk.Of(11))
	assert.Equal(t, chunk.Index(2), s.Contiguous())
}

func TestGetRequiresExistence(t *testing.T) {
	s := New("a", []GeneratorID{1})
	s.Put(0, chunk.Of(1))
	assert.Equal(t, 1, s.Get(0).Value)
	assert.Panics(t, func() { s.Get(5) })
}

func TestMarkSeenNeverDecreases(t *testing.T) {
	s := New("a", []GeneratorID{1})
	s.MarkSeen(1, 3)
	s.MarkSeen(1, 1)
	assert.Equal(t, chunk.Index(3), s.Seen(1))
}

func TestGCDropsBelowMinSeen(t *testing.T) {
	s := New("a", []GeneratorID{1, 2})
	for i := chunk.Index(0); i < 5; i++ {
		s.Put(i, chunk.Of(int(i)))
	}
	s.MarkSeen(1, 2)
	s.MarkSeen(2, 4)

	require.NoError(t, s.gc())

	assert.False(t, s.Has(0))
	assert.False(t, s.Has(2))
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(4))
}

func TestGCNoConsumersIsDeadOutput(t *testing.T) {
	s := New("a", nil)
	s.Put(0, chunk.Of(1))
	err := s.gc()
	assert.ErrorIs(t, err, ErrDeadOutput)
}

func TestManagerGCAggregatesAcrossStores(t *testing.T) {
	m := NewManager([]chunk.Datatype{"a", "b"}, func(dt chunk.Datatype) []GeneratorID {
		if dt == "b" {
			return nil
		}
		return []GeneratorID{1}
	})
	m.Store("a").Put(0, chunk.Of(1))
	m.Store("a").MarkSeen(1, 0)
	m.Store("b").Put(0, chunk.Of(2))

	err := m.GC()
	assert.ErrorIs(t, err, ErrDeadOutput)
	assert.False(t, m.Store("a").Has(0), "store a's GC should still run despite b's error")
}

func TestAllEmpty(t *testing.T) {
	m := NewManager([]chunk.Datatype{"a"}, func(chunk.Datatype) []GeneratorID { return []GeneratorID{1} })
	assert.True(t, m.AllEmpty())
	m.Store("a").Put(0, chunk.Of(1))
	assert.False(t, m.AllEmpty())
	m.Store("a").MarkSeen(1, 0)
	require.NoError(t, m.GC())
	assert.True(t, m.AllEmpty())
}
