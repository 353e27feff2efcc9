package entitlement

import "time"

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Actionable reports whether the file may hold a new receipt.
func (e FileEvent) Actionable() bool {
	return e.Type == EventCreate || e.Type == EventModify
}
