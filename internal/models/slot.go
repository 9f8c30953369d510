package models

import "fmt"

// FileDescriptor is the host-side handle to a file the user selected.
// The content lives in storage under ID; a slot only holds the handle.
type FileDescriptor struct {
	ID       string `json:"id" msgpack:"id"`
	Name     string `json:"name" msgpack:"name"`
	Size     int64  `json:"size" msgpack:"size"`
	MimeType string `json:"mimeType" msgpack:"mimeType"`
}

// Slot is one upload position. Category and File are either both set or both nil.
type Slot struct {
	Index    int
	Category *Category
	File     *FileDescriptor
	Visible  bool
}

// Bound reports whether the slot is assigned to a category.
func (s *Slot) Bound() bool {
	return s.Category != nil
}

// FieldName is the form field the slot submits under once bound.
func (s *Slot) FieldName() string {
	if !s.Bound() {
		return ""
	}
	return fmt.Sprintf("file%d", s.Index)
}
