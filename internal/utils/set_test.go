package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := MakeSet[string](4)
	assert.Empty(t, s)
	s.Insert("resize", "crop")
	s.Insert("crop")
	assert.Len(t, s, 2)
	assert.True(t, s.Has("crop"))
	assert.False(t, s.Has("flip"))

	s.Insert("flip")
	assert.Equal(t, []string{"crop", "flip", "resize"}, Sorted(s))
	assert.Empty(t, Sorted(MakeSet[int]()))
}
