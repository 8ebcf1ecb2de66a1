package models

import "fmt"

// EntryID identifies a FileEntry. Views and sessions hold it by value; the
// registry owns the entry itself.
type EntryID uint64

// EditorID identifies an open editor (a tab in the TUI).
type EditorID uint64

// FileEntry represents one annotation file in the file list
type FileEntry struct {
	ID   EntryID
	Path string // canonical absolute path, unique per registry
	Name string // base filename shown in the list
}

// SessionState is the lifecycle state of an editor session
type SessionState int

const (
	StateClosed SessionState = iota
	StateLoading
	StateClean
	StateDirty
	StateSaving
)

func (s SessionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Direction tells which converter subcommand a request runs
type Direction int

const (
	Dump Direction = iota
	Update
)

func (d Direction) String() string {
	if d == Update {
		return "update"
	}
	return "dump"
}

// ConversionRequest describes a single converter invocation. It lives only for
// the duration of one process call.
type ConversionRequest struct {
	Source    string // native path of the .hkx file
	Staging   string // temp file the converter reads from or writes to
	Direction Direction
	Payload   string // text to stage, Update only
}

// Args renders the converter argument vector for the request.
func (r ConversionRequest) Args() []string {
	if r.Direction == Update {
		return []string{"update", "-i", r.Staging, r.Source}
	}
	return []string{"dump", "-o", r.Staging, r.Source}
}
