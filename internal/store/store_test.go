package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trade-approval-go/internal/models"
)

func newTrade(id string, createdAt time.Time) models.Trade {
	return models.Trade{
		ID:        id,
		Status:    models.StatusPending,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(5 * time.Minute),
	}
}

func TestInsertAndSnapshot(t *testing.T) {
	// Arrange
	s := New()
	created := time.Now()

	// Act
	s.Insert(newTrade("t1", created))
	trade, ok := s.Snapshot("t1")

	// Assert
	assert.True(t, ok)
	assert.Equal(t, "t1", trade.ID)
	assert.Equal(t, models.StatusPending, trade.Status)
	assert.Nil(t, trade.DecidedAt)
	assert.Equal(t, 1, s.Len())

	_, ok = s.Snapshot("unknown")
	assert.False(t, ok)
}

func TestTransition(t *testing.T) {
	t.Run("FirstTransitionWins", func(t *testing.T) {
		s := New()
		s.Insert(newTrade("t1", time.Now()))

		trade, swapped, found := s.Transition("t1", models.StatusPending, models.StatusApproved, time.Now())

		assert.True(t, found)
		assert.True(t, swapped)
		assert.Equal(t, models.StatusApproved, trade.Status)
		assert.NotNil(t, trade.DecidedAt)
	})

	t.Run("SecondTransitionIsNoOp", func(t *testing.T) {
		s := New()
		s.Insert(newTrade("t1", time.Now()))

		first, _, _ := s.Transition("t1", models.StatusPending, models.StatusApproved, time.Now())
		second, swapped, found := s.Transition("t1", models.StatusPending, models.StatusRejected, time.Now())

		assert.True(t, found)
		assert.False(t, swapped)
		assert.Equal(t, models.StatusApproved, second.Status)
		assert.Equal(t, first.DecidedAt, second.DecidedAt)
	})

	t.Run("UnknownId", func(t *testing.T) {
		s := New()

		_, swapped, found := s.Transition("missing", models.StatusPending, models.StatusApproved, time.Now())

		assert.False(t, found)
		assert.False(t, swapped)
	})
}

func TestConcurrentDecisionRace(t *testing.T) {
	// Two concurrent opposite decisions on one pending trade: exactly one
	// must win, and both callers must observe the same final status.
	s := New()
	s.Insert(newTrade("t1", time.Now()))

	var wg sync.WaitGroup
	results := make([]models.Trade, 2)
	outcomes := []models.Status{models.StatusApproved, models.StatusRejected}
	for i, outcome := range outcomes {
		wg.Add(1)
		go func(i int, outcome models.Status) {
			defer wg.Done()
			results[i], _, _ = s.Transition("t1", models.StatusPending, outcome, time.Now())
		}(i, outcome)
	}
	wg.Wait()

	final, ok := s.Snapshot("t1")
	assert.True(t, ok)
	assert.Contains(t, outcomes, final.Status)
	assert.Equal(t, final.Status, results[0].Status)
	assert.Equal(t, final.Status, results[1].Status)
	assert.NotNil(t, final.DecidedAt)
}

func TestFail(t *testing.T) {
	t.Run("MarksPendingTradeAsError", func(t *testing.T) {
		s := New()
		s.Insert(newTrade("t1", time.Now()))

		s.Fail("t1", "chart render exploded", time.Now())

		trade, _ := s.Snapshot("t1")
		assert.Equal(t, models.StatusError, trade.Status)
		assert.Equal(t, "chart render exploded", trade.Error)
		assert.NotNil(t, trade.DecidedAt)
	})

	t.Run("DoesNotOverrideDecision", func(t *testing.T) {
		s := New()
		s.Insert(newTrade("t1", time.Now()))
		s.Transition("t1", models.StatusPending, models.StatusApproved, time.Now())

		s.Fail("t1", "late failure", time.Now())

		trade, _ := s.Snapshot("t1")
		assert.Equal(t, models.StatusApproved, trade.Status)
		assert.Empty(t, trade.Error)
	})

	t.Run("DroppedAfterEviction", func(t *testing.T) {
		s := New()
		s.Insert(newTrade("t1", time.Now().Add(-2*time.Hour)))
		s.EvictBefore(time.Now().Add(-time.Hour))

		// Must not panic or resurrect the record.
		s.Fail("t1", "write after evict", time.Now())

		_, ok := s.Snapshot("t1")
		assert.False(t, ok)
	})
}

func TestEvictBefore(t *testing.T) {
	// Arrange: one trade past the cutoff, one decided trade past the cutoff,
	// one fresh trade.
	s := New()
	now := time.Now()
	s.Insert(newTrade("old-pending", now.Add(-2*time.Hour)))
	s.Insert(newTrade("old-decided", now.Add(-90*time.Minute)))
	s.Transition("old-decided", models.StatusPending, models.StatusRejected, now)
	s.Insert(newTrade("fresh", now.Add(-time.Minute)))

	// Act
	evicted := s.EvictBefore(now.Add(-time.Hour))

	// Assert: age is the only criterion, status is irrelevant.
	assert.ElementsMatch(t, []string{"old-pending", "old-decided"}, evicted)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Snapshot("fresh")
	assert.True(t, ok)
}

func TestEvictBeforeKeepsRecordsAtCutoff(t *testing.T) {
	s := New()
	now := time.Now()
	s.Insert(newTrade("at-cutoff", now.Add(-time.Hour)))

	evicted := s.EvictBefore(now.Add(-time.Hour))

	assert.Empty(t, evicted)
	assert.Equal(t, 1, s.Len())
}

func TestPendingCount(t *testing.T) {
	s := New()
	now := time.Now()
	s.Insert(newTrade("a", now))
	s.Insert(newTrade("b", now))
	s.Insert(newTrade("c", now))
	s.Transition("b", models.StatusPending, models.StatusApproved, now)

	assert.Equal(t, 2, s.PendingCount())
	assert.Equal(t, 3, s.Len())
}

func TestOperationsOnDistinctRecordsDoNotInterfere(t *testing.T) {
	// Hammer separate records from separate goroutines; the race detector
	// flags any unsynchronized access.
	s := New()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		s.Insert(newTrade(id, time.Now()))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Snapshot(id)
				s.Transition(id, models.StatusPending, models.StatusApproved, time.Now())
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		trade, ok := s.Snapshot(id)
		assert.True(t, ok)
		assert.Equal(t, models.StatusApproved, trade.Status)
	}
}
