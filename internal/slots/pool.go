// Package slots implements the fixed pool of upload slots and the rule that
// decides which one of them is active.
package slots

import (
	"errors"
	"fmt"

	"github.com/file-loader/backend/internal/models"
	"github.com/file-loader/backend/internal/validator"
)

var (
	// ErrAlreadyBound is returned when binding a slot that already holds a category.
	ErrAlreadyBound = errors.New("slot already bound")
	// ErrNotBound is returned when unbinding a slot that holds nothing.
	ErrNotBound = errors.New("slot not bound")
	// ErrValidationFailed is returned when a file fails the type or size check.
	ErrValidationFailed = errors.New("file failed validation")
	// ErrOutOfRange is returned for slot indices outside the pool.
	ErrOutOfRange = errors.New("slot index out of range")
	// ErrNilCategory is returned when binding without a category.
	ErrNilCategory = errors.New("category is required")
)

// Pool is the ordered, fixed-size collection of upload slots.
// It never grows or shrinks after NewPool; slots are only rebound.
type Pool struct {
	slots []*models.Slot
}

// NewPool creates one slot per quota unit, in catalog order: the first
// category's units take the lowest indices.
func NewPool(categories []*models.Category) *Pool {
	total := 0
	for _, c := range categories {
		total += c.TotalQuota
	}

	slots := make([]*models.Slot, 0, total)
	for _, c := range categories {
		for i := 0; i < c.TotalQuota; i++ {
			slots = append(slots, &models.Slot{Index: len(slots)})
		}
	}

	return &Pool{slots: slots}
}

// Slots returns the slots in index order. Callers must not reorder it.
func (p *Pool) Slots() []*models.Slot {
	return p.slots
}

// Len returns the number of slots.
func (p *Pool) Len() int {
	return len(p.slots)
}

// Slot returns the slot at index.
func (p *Pool) Slot(index int) (*models.Slot, error) {
	if index < 0 || index >= len(p.slots) {
		return nil, fmt.Errorf("slot %d: %w", index, ErrOutOfRange)
	}
	return p.slots[index], nil
}

// Bind assigns category and file to the slot. On success the caller owns
// the quota decrement; on failure the slot is left untouched.
func (p *Pool) Bind(index int, category *models.Category, file *models.FileDescriptor) error {
	slot, err := p.Slot(index)
	if err != nil {
		return err
	}
	if slot.Bound() {
		return fmt.Errorf("slot %d: %w", index, ErrAlreadyBound)
	}
	if category == nil {
		return fmt.Errorf("slot %d: %w", index, ErrNilCategory)
	}
	if !validator.Accepts(file, category.AcceptedTypes) {
		return fmt.Errorf("slot %d, category %q: %w", index, category.Name, ErrValidationFailed)
	}

	slot.Category = category
	slot.File = file
	return nil
}

// Unbind clears the slot and returns what it held. The caller owns the
// quota increment on the returned category.
func (p *Pool) Unbind(index int) (*models.Category, *models.FileDescriptor, error) {
	slot, err := p.Slot(index)
	if err != nil {
		return nil, nil, err
	}
	if !slot.Bound() {
		return nil, nil, fmt.Errorf("slot %d: %w", index, ErrNotBound)
	}

	category, file := slot.Category, slot.File
	slot.Category = nil
	slot.File = nil
	return category, file, nil
}

// BoundCount returns how many slots are currently bound to category.
func (p *Pool) BoundCount(category *models.Category) int {
	n := 0
	for _, s := range p.slots {
		if s.Category == category {
			n++
		}
	}
	return n
}
