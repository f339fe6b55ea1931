package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	t.Run("known code", func(t *testing.T) {
		e, ok := Lookup("5812")
		assert.True(t, ok)
		assert.Equal(t, "Food & Drink", e.Category)
		assert.Equal(t, "Eating places and restaurants", e.Description)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, ok := Lookup("0000")
		assert.False(t, ok)
	})

	t.Run("empty code", func(t *testing.T) {
		_, ok := Lookup("")
		assert.False(t, ok)
	})
}
