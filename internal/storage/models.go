package storage

import "time"

// Entry is one persisted cache record.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}
