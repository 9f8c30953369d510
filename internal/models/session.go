package models

import "time"

// SessionInfo summarizes a widget session for listings.
type SessionInfo struct {
	ID           string    `json:"id" msgpack:"id"`
	CreatedAt    time.Time `json:"createdAt" msgpack:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed" msgpack:"lastAccessed"`
	SlotCount    int       `json:"slotCount" msgpack:"slotCount"`
	BoundCount   int       `json:"boundCount" msgpack:"boundCount"`
}
