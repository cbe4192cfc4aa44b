// Package models defines the domain types shared by the SEFS pipeline and its transports.
package models

import "time"

// FileMeta describes one file under the managed root as seen at scan time.
type FileMeta struct {
	Rel       string    `json:"rel"`  // slash-separated path relative to the managed root
	Path      string    `json:"path"` // absolute path
	Name      string    `json:"name"` // basename, the identity key across moves
	Ext       string    `json:"ext"`  // lowercase extension including the dot
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManagedFile is a file that survived extraction and embedding in one cycle.
// It is rebuilt every cycle and never persisted across cycles.
type ManagedFile struct {
	FileMeta
	Text   string    `json:"-"`
	Vector []float32 `json:"-"`
	Label  int       `json:"label"`
}

// Placement records where a managed file ended up after the organizer ran.
// Rel is the post-move location, or the prior location if the move failed.
type Placement struct {
	Name   string
	Rel    string
	Folder string
	Text   string
	Moved  bool
	Err    error
}
