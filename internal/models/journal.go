package models

import "time"

// TransitionKind names a widget state transition.
type TransitionKind string

const (
	TransitionFileOffered       TransitionKind = "file_offered"
	TransitionCategoryChosen    TransitionKind = "category_chosen"
	TransitionSlotBound         TransitionKind = "slot_bound"
	TransitionSlotCleared       TransitionKind = "slot_cleared"
	TransitionValidationFailed  TransitionKind = "validation_failed"
	TransitionCategoryExhausted TransitionKind = "category_exhausted"
)

// TransitionEvent is one journal record.
type TransitionEvent struct {
	SessionID string         `json:"sessionId"`
	Kind      TransitionKind `json:"kind"`
	SlotIndex int            `json:"slotIndex"`
	Category  string         `json:"category,omitempty"`
	FileName  string         `json:"fileName,omitempty"`
	FileSize  int64          `json:"fileSize,omitempty"`
	Remaining int            `json:"remaining"`
	Timestamp time.Time      `json:"timestamp"`
}
