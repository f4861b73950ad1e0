package chat

import (
	"time"

	"github.com/google/uuid"
)

// Log is the ordered message list of a widget. It is not safe for concurrent
// use; the owning widget serializes access.
type Log struct {
	entries []Entry
	index   map[string]int
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{
		entries: make([]Entry, 0, 16),
		index:   make(map[string]int),
	}
}

// Append adds an entry at the tail and returns it with its ID assigned.
func (l *Log) Append(role Role, text string, pending bool) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Pending:   pending,
		CreatedAt: time.Now().UTC(),
	}
	l.index[entry.ID] = len(l.entries)
	l.entries = append(l.entries, entry)
	return entry
}

// Resolve replaces the text of the entry and clears its pending flag.
// It reports false when the entry no longer exists.
func (l *Log) Resolve(id, text string, failed bool) (Entry, bool) {
	i, ok := l.index[id]
	if !ok {
		return Entry{}, false
	}
	l.entries[i].Text = text
	l.entries[i].Pending = false
	l.entries[i].Failed = failed
	return l.entries[i], true
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.entries = l.entries[:0]
	l.index = make(map[string]int)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the log in display order.
func (l *Log) Entries() []Entry {
	copied := make([]Entry, len(l.entries))
	copy(copied, l.entries)
	return copied
}
