package slots

import "github.com/file-loader/backend/internal/models"

// Recompute picks the active slot: the lowest-indexed slot with no category.
// Exactly that slot is marked visible and every other slot hidden. When all
// slots are bound it returns ok=false and nothing is visible.
//
// The result depends only on the bound state of the slots, so repeated calls
// on an unchanged pool yield the same answer.
func Recompute(slots []*models.Slot) (active int, ok bool) {
	active = -1
	for _, s := range slots {
		s.Visible = false
		if active < 0 && !s.Bound() {
			active = s.Index
			s.Visible = true
		}
	}
	return active, active >= 0
}
