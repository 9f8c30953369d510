package slots

import (
	"testing"

	"github.com/file-loader/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visibleIndices(slots []*models.Slot) []int {
	var out []int
	for _, s := range slots {
		if s.Visible {
			out = append(out, s.Index)
		}
	}
	return out
}

func TestRecompute(t *testing.T) {
	t.Run("fresh pool activates slot 0", func(t *testing.T) {
		pool := NewPool(testCategories())

		active, ok := Recompute(pool.Slots())
		require.True(t, ok)
		assert.Equal(t, 0, active)
		assert.Equal(t, []int{0}, visibleIndices(pool.Slots()))
	})

	t.Run("skips bound slots", func(t *testing.T) {
		cats := testCategories()
		pool := NewPool(cats)
		require.NoError(t, pool.Bind(0, cats[0], pngFile("a.png")))

		active, ok := Recompute(pool.Slots())
		require.True(t, ok)
		assert.Equal(t, 1, active)
		assert.Equal(t, []int{1}, visibleIndices(pool.Slots()))
	})

	t.Run("lowest unbound index wins over later gaps", func(t *testing.T) {
		cats := testCategories()
		pool := NewPool(cats)
		require.NoError(t, pool.Bind(0, cats[0], pngFile("a.png")))
		require.NoError(t, pool.Bind(1, cats[0], pngFile("b.png")))
		Recompute(pool.Slots())

		// slot 2 has been unbound all along; slot 0 is freed afterwards
		_, _, err := pool.Unbind(0)
		require.NoError(t, err)

		active, ok := Recompute(pool.Slots())
		require.True(t, ok)
		assert.Equal(t, 0, active)
		assert.Equal(t, []int{0}, visibleIndices(pool.Slots()))
	})

	t.Run("all bound leaves nothing visible", func(t *testing.T) {
		cats := testCategories()
		pool := NewPool(cats)
		require.NoError(t, pool.Bind(0, cats[0], pngFile("a.png")))
		require.NoError(t, pool.Bind(1, cats[0], pngFile("b.png")))
		require.NoError(t, pool.Bind(2, cats[1], &models.FileDescriptor{Name: "p.pdf", Size: 1, MimeType: "application/pdf"}))

		active, ok := Recompute(pool.Slots())
		assert.False(t, ok)
		assert.Equal(t, -1, active)
		assert.Empty(t, visibleIndices(pool.Slots()))
	})

	t.Run("empty pool has no active slot", func(t *testing.T) {
		_, ok := Recompute(nil)
		assert.False(t, ok)
	})

	t.Run("idempotent on unchanged pool", func(t *testing.T) {
		cats := testCategories()
		pool := NewPool(cats)
		require.NoError(t, pool.Bind(1, cats[0], pngFile("b.png")))

		first, firstOK := Recompute(pool.Slots())
		firstVisible := visibleIndices(pool.Slots())
		second, secondOK := Recompute(pool.Slots())

		assert.Equal(t, first, second)
		assert.Equal(t, firstOK, secondOK)
		assert.Equal(t, firstVisible, visibleIndices(pool.Slots()))
	})

	t.Run("clears stale visibility flags", func(t *testing.T) {
		pool := NewPool(testCategories())
		for _, s := range pool.Slots() {
			s.Visible = true
		}

		Recompute(pool.Slots())
		assert.Equal(t, []int{0}, visibleIndices(pool.Slots()))
	})
}
