package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorUnsetHasNoFloor(t *testing.T) {
	var c Cursor
	floor, ok := c.NextFetchFloor()
	assert.False(t, ok)
	assert.Equal(t, int64(0), floor)
}

func TestCursorAdvanceSetsFloor(t *testing.T) {
	var c Cursor
	c.Advance(100)

	floor, ok := c.NextFetchFloor()
	assert.True(t, ok)
	assert.Equal(t, int64(101), floor)
}

func TestCursorNeverDecreases(t *testing.T) {
	var c Cursor
	c.Advance(100)
	c.Advance(100) // same value
	c.Advance(42)  // smaller value

	floor, ok := c.NextFetchFloor()
	assert.True(t, ok)
	assert.Equal(t, int64(101), floor)

	c.Advance(200)
	floor, _ = c.NextFetchFloor()
	assert.Equal(t, int64(201), floor)
}

func TestCursorAdvanceToZeroCountsAsSet(t *testing.T) {
	var c Cursor
	c.Advance(0)
	floor, ok := c.NextFetchFloor()
	assert.True(t, ok)
	assert.Equal(t, int64(1), floor)
}
