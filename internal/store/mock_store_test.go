// ABOUTME: Tests for MockStore behavior parity with SQLiteStore
// ABOUTME: Ensures the in-memory store copies records and honors FailWrites

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	a := &AdSpace{ID: uuid.New(), Created: time.Now(), Categories: Categories{1, 2}, State: StateNew}
	require.NoError(t, m.PutAdSpace(ctx, a))

	a.Categories[0] = 99
	got, err := m.GetAdSpace(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, Categories{1, 2}, got.Categories)

	got.Name = "mutated"
	again, err := m.GetAdSpace(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Name)
}

func TestMockStore_NotFound(t *testing.T) {
	m := NewMockStore()
	_, err := m.GetHit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_FailWrites(t *testing.T) {
	m := NewMockStore()
	m.FailWrites = true
	ctx := context.Background()

	assert.Error(t, m.PutUser(ctx, &User{ID: uuid.New()}))
	assert.Error(t, m.AddOwner(ctx, "x"))
	assert.Error(t, m.AppendEvent(ctx, &EventRecord{}))
}

func TestMockStore_Events(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendEvent(ctx, &EventRecord{Type: "HitCreated"}))
	}

	events, err := m.ListEvents(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)
}

func TestMockStore_Coefficients(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	id := uuid.New()

	vals := []int64{1, 2}
	require.NoError(t, m.SetCoefficients(ctx, KindHit, id, vals))
	vals[0] = 42

	got, err := m.Coefficients(ctx, KindHit, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
}
