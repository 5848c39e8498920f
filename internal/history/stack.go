// Package history implements the per-mode undo/redo stack of bill snapshots.
package history

import (
	"encoding/json"
)

// Stack is a linear undo log of serialized bill snapshots with a cursor
// pointing at the current entry.
//
// The cursor is always in [-1, Len()-1]; -1 means the stack is empty.
// Pushing while the cursor is not at the end discards every entry after it.
// A Stack is not safe for concurrent use.
type Stack struct {
	entries [][]byte
	cursor  int
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{cursor: -1}
}

// Push truncates entries after the cursor, appends a copy of snapshot and
// moves the cursor to it.
func (s *Stack) Push(snapshot []byte) {
	s.entries = append(s.entries[:s.cursor+1], append([]byte(nil), snapshot...))
	s.cursor = len(s.entries) - 1
}

// Undo moves the cursor back one entry and returns the snapshot there.
// It returns false, leaving the stack unchanged, when already at the first entry.
func (s *Stack) Undo() ([]byte, bool) {
	if s.cursor <= 0 {
		return nil, false
	}
	s.cursor--
	return s.entries[s.cursor], true
}

// Redo moves the cursor forward one entry and returns the snapshot there.
// It returns false, leaving the stack unchanged, when already at the last entry.
func (s *Stack) Redo() ([]byte, bool) {
	if s.cursor >= len(s.entries)-1 {
		return nil, false
	}
	s.cursor++
	return s.entries[s.cursor], true
}

// Current returns the snapshot at the cursor.
func (s *Stack) Current() ([]byte, bool) {
	if s.cursor < 0 {
		return nil, false
	}
	return s.entries[s.cursor], true
}

// CanUndo reports whether Undo would move the cursor.
func (s *Stack) CanUndo() bool { return s.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (s *Stack) CanRedo() bool { return s.cursor < len(s.entries)-1 }

// Len returns the number of entries.
func (s *Stack) Len() int { return len(s.entries) }

// Cursor returns the index of the current entry, or -1 when empty.
func (s *Stack) Cursor() int { return s.cursor }

type stackJSON struct {
	Entries []json.RawMessage `json:"entries"`
	Cursor  int               `json:"cursor"`
}

// MarshalJSON encodes the stack as {"entries": [...], "cursor": n}.
// Entries must themselves be valid JSON.
func (s *Stack) MarshalJSON() ([]byte, error) {
	out := stackJSON{Entries: make([]json.RawMessage, len(s.entries)), Cursor: s.cursor}
	for i, e := range s.entries {
		out.Entries[i] = e
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a stack, clamping the cursor into range.
func (s *Stack) UnmarshalJSON(b []byte) error {
	var in stackJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	s.entries = make([][]byte, len(in.Entries))
	for i, e := range in.Entries {
		s.entries[i] = append([]byte(nil), e...)
	}
	s.cursor = in.Cursor
	if s.cursor > len(s.entries)-1 {
		s.cursor = len(s.entries) - 1
	}
	if s.cursor < -1 {
		s.cursor = -1
	}
	return nil
}
