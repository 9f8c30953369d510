package models

import "strings"

// CategoryDef is one entry of the remote catalog document:
// {"name": "ID", "cnt": 2, "accept": "image/png,image/jpeg"}.
type CategoryDef struct {
	Name   string `json:"name" yaml:"name"`
	Cnt    int    `json:"cnt" yaml:"cnt"`
	Accept string `json:"accept" yaml:"accept"`
}

// Category is a named document type with a fixed upload quota and the
// MIME types it accepts. RemainingQuota stays within [0, TotalQuota].
type Category struct {
	Name           string   `json:"name" msgpack:"name"`
	TotalQuota     int      `json:"totalQuota" msgpack:"totalQuota"`
	RemainingQuota int      `json:"remainingQuota" msgpack:"remainingQuota"`
	AcceptedTypes  []string `json:"acceptedTypes" msgpack:"acceptedTypes"`
}

// NewCategory creates a category with its full quota available.
// Negative quotas are treated as zero.
func NewCategory(name string, quota int, acceptedTypes []string) *Category {
	if quota < 0 {
		quota = 0
	}
	return &Category{
		Name:           name,
		TotalQuota:     quota,
		RemainingQuota: quota,
		AcceptedTypes:  acceptedTypes,
	}
}

// ToCategory converts the wire definition into a fresh Category.
func (d CategoryDef) ToCategory() *Category {
	return NewCategory(strings.TrimSpace(d.Name), d.Cnt, ParseAcceptList(d.Accept))
}

// Selectable reports whether the category can still take a file.
func (c *Category) Selectable() bool {
	return c.RemainingQuota > 0
}

// Clone returns a deep copy so that sessions never share quota counters.
func (c *Category) Clone() *Category {
	types := make([]string, len(c.AcceptedTypes))
	copy(types, c.AcceptedTypes)
	return &Category{
		Name:           c.Name,
		TotalQuota:     c.TotalQuota,
		RemainingQuota: c.RemainingQuota,
		AcceptedTypes:  types,
	}
}

// ParseAcceptList splits a comma-separated MIME list, dropping blanks.
func ParseAcceptList(accept string) []string {
	parts := strings.Split(accept, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			types = append(types, p)
		}
	}
	return types
}
