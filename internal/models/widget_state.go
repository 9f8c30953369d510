package models

import "time"

// CategoryOption is one entry of the category selector.
type CategoryOption struct {
	Value       string   `json:"value" msgpack:"value"`
	Label       string   `json:"label" msgpack:"label"`
	Cnt         int      `json:"cnt" msgpack:"cnt"`
	Total       int      `json:"total" msgpack:"total"`
	Accept      []string `json:"accept,omitempty" msgpack:"accept,omitempty"`
	Disabled    bool     `json:"disabled" msgpack:"disabled"`
	Placeholder bool     `json:"placeholder,omitempty" msgpack:"placeholder,omitempty"`
}

// SlotView is the render-ready view of a Slot.
type SlotView struct {
	Index     int             `json:"index" msgpack:"index"`
	Category  string          `json:"category,omitempty" msgpack:"category,omitempty"`
	FieldName string          `json:"fieldName,omitempty" msgpack:"fieldName,omitempty"`
	File      *FileDescriptor `json:"file,omitempty" msgpack:"file,omitempty"`
	Visible   bool            `json:"visible" msgpack:"visible"`
}

// FileRow is one line of the accepted-files list.
type FileRow struct {
	SlotIndex     int    `json:"slotIndex" msgpack:"slotIndex"`
	FileName      string `json:"fileName" msgpack:"fileName"`
	CategoryName  string `json:"categoryName" msgpack:"categoryName"`
	FormattedSize string `json:"formattedSize" msgpack:"formattedSize"`
}

// WidgetState is everything the browser needs to render one widget.
type WidgetState struct {
	ID               string           `json:"id" msgpack:"id"`
	Options          []CategoryOption `json:"options" msgpack:"options"`
	Slots            []SlotView       `json:"slots" msgpack:"slots"`
	ActiveIndex      *int             `json:"activeIndex" msgpack:"activeIndex"`
	AcceptedTypes    []string         `json:"acceptedTypes" msgpack:"acceptedTypes"`
	SelectorVisible  bool             `json:"selectorVisible" msgpack:"selectorVisible"`
	SelectedCategory string           `json:"selectedCategory,omitempty" msgpack:"selectedCategory,omitempty"`
	PendingFile      *FileDescriptor  `json:"pendingFile,omitempty" msgpack:"pendingFile,omitempty"`
	Files            []FileRow        `json:"files" msgpack:"files"`
	UpdatedAt        time.Time        `json:"updatedAt" msgpack:"updatedAt"`
}
