package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

func newPosition(id string, openedAt time.Time) domain.Position {
	return domain.Position{
		ID:         id,
		Symbol:     "BTC/USDT",
		Side:       domain.SideLong,
		Amount:     0.001,
		EntryPrice: 50000,
		Status:     domain.PositionStatusOpen,
		OpenedAt:   openedAt,
	}
}

func TestPutGetRemove(t *testing.T) {
	s := NewPositionStore()
	now := time.Now()

	s.Put(newPosition("a", now))
	require.Equal(t, 1, s.Len())

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	removed, ok := s.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, 0, s.Len())

	_, ok = s.Get("a")
	assert.False(t, ok)
	_, ok = s.Remove("a")
	assert.False(t, ok)
}

func TestRemoveExactlyOnce(t *testing.T) {
	s := NewPositionStore()
	s.Put(newPosition("contested", time.Now()))

	const workers = 32

	var (
		wg   sync.WaitGroup
		wins atomic.Int64
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Remove("contested"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, 0, s.Len())
}

func TestUpdateAtomicity(t *testing.T) {
	s := NewPositionStore()
	s.Put(newPosition("p", time.Now()))

	const workers = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("p", func(p *domain.Position) {
				p.Amount += 1
			})
		}()
	}
	wg.Wait()

	got, ok := s.Get("p")
	require.True(t, ok)
	assert.InDelta(t, 0.001+workers, got.Amount, 1e-9)

	_, ok = s.Update("missing", func(p *domain.Position) {})
	assert.False(t, ok)
}

func TestListOrderedSnapshot(t *testing.T) {
	s := NewPositionStore()
	base := time.Now()

	s.Put(newPosition("late", base.Add(2*time.Second)))
	s.Put(newPosition("early", base))
	s.Put(newPosition("mid-b", base.Add(time.Second)))
	s.Put(newPosition("mid-a", base.Add(time.Second)))

	list := s.List()
	require.Len(t, list, 4)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "mid-a", list[1].ID) // same instant breaks ties by ID
	assert.Equal(t, "mid-b", list[2].ID)
	assert.Equal(t, "late", list[3].ID)

	// The snapshot is detached from the store.
	list[0].Amount = 999
	got, _ := s.Get("early")
	assert.InDelta(t, 0.001, got.Amount, 1e-9)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := NewPositionStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprintf("p-%d", i)
		go func() {
			defer wg.Done()
			s.Put(newPosition(id, now))
			s.Remove(id)
		}()
		go func() {
			defer wg.Done()
			s.List()
			s.Len()
			s.Get(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, s.Len())
}
