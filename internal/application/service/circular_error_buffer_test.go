package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocknotifier/internal/domain/entity"
)

func bufferError(i int, at time.Time) *entity.ProcessingError {
	return &entity.ProcessingError{
		Timestamp: at,
		Operation: "fetch",
		ItemID:    fmt.Sprintf("item_%d", i),
	}
}

func TestCircularErrorBuffer_BoundedOverwrite(t *testing.T) {
	buffer := newCircularErrorBuffer(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		buffer.Add(bufferError(i, now.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, buffer.Size())
	assert.Equal(t, 3, buffer.Capacity())

	all := buffer.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "item_2", all[0].ItemID, "the oldest surviving entry comes first")
	assert.Equal(t, "item_4", all[2].ItemID)
}

func TestCircularErrorBuffer_Recent(t *testing.T) {
	buffer := newCircularErrorBuffer(10)
	now := time.Now()
	for i := 0; i < 6; i++ {
		buffer.Add(bufferError(i, now.Add(time.Duration(i)*time.Second)))
	}

	recent := buffer.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "item_3", recent[0].ItemID)
	assert.Equal(t, "item_5", recent[2].ItemID)

	assert.Len(t, buffer.Recent(100), 6, "asking for more than stored returns everything")
}

func TestCircularErrorBuffer_CountSince(t *testing.T) {
	buffer := newCircularErrorBuffer(10)
	now := time.Now()

	buffer.Add(bufferError(0, now.Add(-2*time.Hour)))
	buffer.Add(bufferError(1, now.Add(-30*time.Minute)))
	buffer.Add(bufferError(2, now.Add(-time.Minute)))

	assert.Equal(t, 2, buffer.CountSince(now.Add(-time.Hour)))
}

func TestCircularErrorBuffer_Clear(t *testing.T) {
	buffer := newCircularErrorBuffer(5)
	for i := 0; i < 4; i++ {
		buffer.Add(bufferError(i, time.Now()))
	}

	buffer.Clear()

	assert.Zero(t, buffer.Size())
	assert.Empty(t, buffer.GetAll())

	buffer.Add(bufferError(9, time.Now()))
	all := buffer.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "item_9", all[0].ItemID)
}

func TestCircularErrorBuffer_EdgeCases(t *testing.T) {
	assert.Nil(t, newCircularErrorBuffer(0))
	assert.Nil(t, newCircularErrorBuffer(-1))

	buffer := newCircularErrorBuffer(2)
	assert.False(t, buffer.Add(nil))
	assert.Zero(t, buffer.Size())
}
