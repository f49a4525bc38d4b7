package models

import "time"

// Case is a workspace that owns its documents and timeline events. Exactly one
// case is active at a time for ingestion purposes; cases are never merged.
type Case struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	Created      time.Time `db:"created"`
	LastModified time.Time `db:"last_modified"`
}
