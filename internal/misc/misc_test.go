package misc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert.Equal(t, 1, Min(1, 2))
	assert.Equal(t, 1, Min(2, 1))
	assert.Equal(t, "a", Min("a", "b"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(3, 1, 5))
	assert.Equal(t, 1, Clamp(0, 1, 5))
	assert.Equal(t, 5, Clamp(9, 1, 5))
}

func TestStringLimit(t *testing.T) {
	assert.Equal(t, "hello", StringLimit("hello", 10))
	assert.Equal(t, "hello", StringLimit("hello", 5))
	assert.Equal(t, "h...", StringLimit("hello!", 4))
	assert.Equal(t, "hel", StringLimit("hello", 3))
	assert.Equal(t, "", StringLimit("hello", 0))
	assert.Equal(t, "", StringLimit("hello", -1))
}
