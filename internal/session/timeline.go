package session

import (
	"sort"
	"sync"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// normalize returns messages unique by id, keeping the later occurrence
// when an id repeats, sorted ascending by CreatedAt. A zero CreatedAt
// sorts first. The function is pure and idempotent; every rendered state
// passes through it.
func normalize(messages []chat.Message) []chat.Message {
	byID := make(map[string]int, len(messages))
	out := make([]chat.Message, 0, len(messages))
	for _, m := range messages {
		if i, ok := byID[m.ID]; ok {
			out[i] = m
			continue
		}
		byID[m.ID] = len(out)
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Timeline is the ordered, deduplicated message collection for one chat.
// It is owned by a single Controller and mutated only through its methods;
// readers get snapshots.
type Timeline struct {
	mu       sync.Mutex
	messages []chat.Message

	// onChange, when set, is invoked after every mutation, outside the lock.
	onChange func()
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) notify() {
	if t.onChange != nil {
		t.onChange()
	}
}

// Replace swaps in a full historical load.
func (t *Timeline) Replace(messages []chat.Message) {
	t.mu.Lock()
	t.messages = normalize(messages)
	t.mu.Unlock()
	t.notify()
}

// Append adds a message and re-normalizes.
func (t *Timeline) Append(msg chat.Message) {
	t.mu.Lock()
	t.messages = normalize(append(t.messages, msg))
	t.mu.Unlock()
	t.notify()
}

// Merge reconciles a confirmed message into the timeline:
//
//  1. an already-known id is discarded (duplicate delivery),
//  2. a temporary message with the same sender and exact text is dropped
//     as superseded,
//  3. the incoming message is appended and the timeline re-normalized.
//
// It reports whether the timeline changed.
func (t *Timeline) Merge(incoming chat.Message) bool {
	t.mu.Lock()

	for _, m := range t.messages {
		if m.ID == incoming.ID {
			t.mu.Unlock()
			return false
		}
	}

	kept := make([]chat.Message, 0, len(t.messages)+1)
	superseded := false
	for _, m := range t.messages {
		if !superseded && m.Temporary() && m.Sender == incoming.Sender && m.Text == incoming.Text {
			superseded = true
			continue
		}
		kept = append(kept, m)
	}

	t.messages = normalize(append(kept, incoming))
	t.mu.Unlock()
	t.notify()
	return true
}

// SetText rewrites the text of the message with the given id in place.
// This is the streaming token path; it never duplicates the record.
func (t *Timeline) SetText(id, text string) bool {
	t.mu.Lock()
	found := false
	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages[i].Text = text
			found = true
			break
		}
	}
	t.mu.Unlock()
	if found {
		t.notify()
	}
	return found
}

// Remove deletes the message with the given id, if present.
func (t *Timeline) Remove(id string) bool {
	t.mu.Lock()
	removed := false
	kept := t.messages[:0]
	for _, m := range t.messages {
		if m.ID == id {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	t.messages = kept
	t.mu.Unlock()
	if removed {
		t.notify()
	}
	return removed
}

// Snapshot returns a copy of the current rendered order.
func (t *Timeline) Snapshot() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := make([]chat.Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Len returns the number of messages currently held.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
