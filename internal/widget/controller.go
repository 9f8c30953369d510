// Package widget implements the category selection state machine that sits
// behind the upload widget: which slot is active, which category a file is
// bound to, and how quotas move as files are added and removed.
package widget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/file-loader/backend/internal/models"
	"github.com/file-loader/backend/internal/slots"
	"github.com/file-loader/backend/internal/validator"
)

var (
	// ErrCategoryExhausted is returned when the chosen category has no quota left.
	ErrCategoryExhausted = errors.New("category exhausted")
	// ErrUnknownCategory is returned for a category name not in the catalog.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoActiveSlot is returned when every slot is already bound.
	ErrNoActiveSlot = errors.New("no active slot")
)

// Observer receives every transition the controller performs or rejects.
type Observer func(event models.TransitionEvent)

// Outcome describes the effect of an accepted transition.
type Outcome struct {
	// Bound is true when the transition bound a file to SlotIndex.
	Bound     bool
	SlotIndex int
	// Released is a file handle the widget no longer references.
	Released *models.FileDescriptor
}

// Controller owns one widget's categories and slot pool. All transitions
// run under a single mutex so they execute one at a time to completion.
type Controller struct {
	mu sync.Mutex

	id         string
	categories []*models.Category
	byName     map[string]*models.Category
	pool       *slots.Pool

	active    int
	hasActive bool

	acceptedTypes []string
	selected      *models.Category
	pending       *models.FileDescriptor

	observer  Observer
	updatedAt time.Time
}

// NewController builds the slot pool from categories and activates the
// first slot. The controller mutates the given Category records in place.
func NewController(id string, categories []*models.Category, observer Observer) *Controller {
	byName := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		if _, dup := byName[c.Name]; !dup {
			byName[c.Name] = c
		}
	}

	c := &Controller{
		id:            id,
		categories:    categories,
		byName:        byName,
		pool:          slots.NewPool(categories),
		acceptedTypes: validator.DefaultAcceptedTypes,
		observer:      observer,
		updatedAt:     time.Now(),
	}
	c.active, c.hasActive = slots.Recompute(c.pool.Slots())
	return c
}

// ID returns the widget id.
func (c *Controller) ID() string {
	return c.id
}

// ActiveIndex returns the active slot, if any.
func (c *Controller) ActiveIndex() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.hasActive
}

// OfferFile handles a file picked for the active slot. A file that fails
// validation is discarded and nothing changes. A valid file is bound at once
// if a category was already chosen, otherwise it waits for ChooseCategory.
func (c *Controller) OfferFile(file *models.FileDescriptor) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasActive {
		return Outcome{}, ErrNoActiveSlot
	}

	if !validator.Accepts(file, c.acceptedTypes) {
		c.emit(models.TransitionValidationFailed, c.active, c.selected, file)
		return Outcome{}, fmt.Errorf("slot %d: %w", c.active, slots.ErrValidationFailed)
	}

	if c.selected != nil {
		return c.bindActive(c.selected, file)
	}

	released := c.pending
	c.pending = file
	c.touch()
	c.emit(models.TransitionFileOffered, c.active, nil, file)
	return Outcome{SlotIndex: c.active, Released: released}, nil
}

// ChooseCategory assigns a category to the active slot. When a file is
// already pending the slot is bound immediately.
func (c *Controller) ChooseCategory(name string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasActive {
		return Outcome{}, ErrNoActiveSlot
	}

	category, ok := c.byName[name]
	if !ok {
		return Outcome{}, fmt.Errorf("%q: %w", name, ErrUnknownCategory)
	}
	if !category.Selectable() {
		c.emit(models.TransitionCategoryExhausted, c.active, category, nil)
		return Outcome{}, fmt.Errorf("%q: %w", name, ErrCategoryExhausted)
	}

	// A pending file the category does not accept is dropped; the previous
	// selection and accepted types stay as they were.
	if c.pending != nil && !validator.Accepts(c.pending, category.AcceptedTypes) {
		file := c.pending
		c.pending = nil
		c.touch()
		c.emit(models.TransitionValidationFailed, c.active, category, file)
		return Outcome{SlotIndex: c.active, Released: file}, fmt.Errorf("slot %d, category %q: %w", c.active, name, slots.ErrValidationFailed)
	}

	c.acceptedTypes = category.AcceptedTypes
	c.selected = category
	c.touch()
	c.emit(models.TransitionCategoryChosen, c.active, category, nil)

	if c.pending == nil {
		return Outcome{SlotIndex: c.active}, nil
	}
	return c.bindActive(category, c.pending)
}

// ClearSlot unbinds a slot, returns its quota unit to the category and
// re-evaluates the active slot. A pending file stays pending. The released
// file handle is returned so the host can drop the underlying content.
func (c *Controller) ClearSlot(index int) (*models.FileDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	category, file, err := c.pool.Unbind(index)
	if err != nil {
		return nil, err
	}

	if category.RemainingQuota < category.TotalQuota {
		category.RemainingQuota++
	}
	prev, hadActive := c.active, c.hasActive
	c.active, c.hasActive = slots.Recompute(c.pool.Slots())
	if !hadActive || prev != c.active {
		// A category chosen for the previous active slot does not carry over.
		c.selected = nil
		c.acceptedTypes = validator.DefaultAcceptedTypes
	}
	c.touch()
	c.emit(models.TransitionSlotCleared, index, category, file)
	return file, nil
}

// bindActive binds file to the active slot. Caller holds c.mu.
func (c *Controller) bindActive(category *models.Category, file *models.FileDescriptor) (Outcome, error) {
	if !category.Selectable() {
		c.emit(models.TransitionCategoryExhausted, c.active, category, file)
		return Outcome{}, fmt.Errorf("%q: %w", category.Name, ErrCategoryExhausted)
	}

	index := c.active
	if err := c.pool.Bind(index, category, file); err != nil {
		if errors.Is(err, slots.ErrValidationFailed) {
			c.emit(models.TransitionValidationFailed, index, category, file)
		}
		return Outcome{}, err
	}

	category.RemainingQuota--
	c.acceptedTypes = validator.DefaultAcceptedTypes
	c.selected = nil
	c.pending = nil
	c.active, c.hasActive = slots.Recompute(c.pool.Slots())
	c.touch()
	c.emit(models.TransitionSlotBound, index, category, file)
	return Outcome{Bound: true, SlotIndex: index}, nil
}

// SlotCount returns the size of the slot pool.
func (c *Controller) SlotCount() int {
	return c.pool.Len()
}

// Files returns the current file list projection.
func (c *Controller) Files() []models.FileRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Project(c.pool.Slots())
}

// HeldFiles returns every file handle the widget references, bound or pending.
func (c *Controller) HeldFiles() []*models.FileDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	var files []*models.FileDescriptor
	for _, s := range c.pool.Slots() {
		if s.File != nil {
			files = append(files, s.File)
		}
	}
	if c.pending != nil {
		files = append(files, c.pending)
	}
	return files
}

// State returns a render-ready snapshot of the widget.
func (c *Controller) State() models.WidgetState {
	c.mu.Lock()
	defer c.mu.Unlock()

	options := make([]models.CategoryOption, 0, len(c.categories)+1)
	options = append(options, models.CategoryOption{
		Label:       "Please make a selection",
		Disabled:    true,
		Placeholder: true,
	})
	for _, cat := range c.categories {
		options = append(options, models.CategoryOption{
			Value:    cat.Name,
			Label:    cat.Name,
			Cnt:      cat.RemainingQuota,
			Total:    cat.TotalQuota,
			Accept:   cat.AcceptedTypes,
			Disabled: !cat.Selectable(),
		})
	}

	views := make([]models.SlotView, 0, c.pool.Len())
	for _, s := range c.pool.Slots() {
		view := models.SlotView{
			Index:     s.Index,
			FieldName: s.FieldName(),
			File:      s.File,
			Visible:   s.Visible,
		}
		if s.Category != nil {
			view.Category = s.Category.Name
		}
		views = append(views, view)
	}

	state := models.WidgetState{
		ID:              c.id,
		Options:         options,
		Slots:           views,
		AcceptedTypes:   c.acceptedTypes,
		SelectorVisible: c.hasActive && c.pending != nil,
		PendingFile:     c.pending,
		Files:           Project(c.pool.Slots()),
		UpdatedAt:       c.updatedAt,
	}
	if c.hasActive {
		active := c.active
		state.ActiveIndex = &active
	}
	if c.selected != nil {
		state.SelectedCategory = c.selected.Name
	}
	return state
}

func (c *Controller) touch() {
	c.updatedAt = time.Now()
}

func (c *Controller) emit(kind models.TransitionKind, index int, category *models.Category, file *models.FileDescriptor) {
	if c.observer == nil {
		return
	}
	event := models.TransitionEvent{
		SessionID: c.id,
		Kind:      kind,
		SlotIndex: index,
		Timestamp: time.Now(),
	}
	if category != nil {
		event.Category = category.Name
		event.Remaining = category.RemainingQuota
	}
	if file != nil {
		event.FileName = file.Name
		event.FileSize = file.Size
	}
	c.observer(event)
}
