// Package models defines the domain types shared across propindex.
package models

import "time"

// ValueKind tags how a property value was written in the source document.
type ValueKind string

// Value kinds. KindUnknown means the source did not tag the value; it is
// treated like KindBoolean by the key-only fold rule.
const (
	KindUnknown ValueKind = ""
	KindText    ValueKind = "text"
	KindBoolean ValueKind = "boolean"
	KindNumber  ValueKind = "number"
	KindDate    ValueKind = "date"
	KindList    ValueKind = "list"
	KindObject  ValueKind = "object"
)

// Property is one key/value occurrence in a file's metadata, in source order.
type Property struct {
	Key   string    `json:"key"`
	Value string    `json:"value"`
	Kind  ValueKind `json:"kind,omitempty"`
}

// NoteProperties pairs a vault-relative path with its ordered properties.
type NoteProperties struct {
	Path       string     `json:"path"`
	Properties []Property `json:"properties"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
