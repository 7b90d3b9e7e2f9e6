package session

import (
	"testing"
	"time"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

func confirmedMessage(id, chatID string, sender chat.Sender, text string, at time.Time) chat.Message {
	return chat.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    sender,
		Kind:      chat.KindConfirmed,
		Text:      text,
		CreatedAt: at,
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	input := []chat.Message{
		confirmedMessage("b", "c1", chat.SenderUser, "second", base.Add(time.Minute)),
		confirmedMessage("a", "c1", chat.SenderUser, "first", base),
		confirmedMessage("b", "c1", chat.SenderUser, "second again", base.Add(time.Minute)),
	}

	once := normalize(input)
	twice := normalize(once)

	if len(once) != 2 {
		t.Fatalf("expected 2 messages after dedup, got %d", len(once))
	}
	if len(twice) != len(once) {
		t.Fatalf("normalize is not idempotent: %d vs %d", len(twice), len(once))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("normalize is not idempotent at index %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestNormalizeLaterOccurrenceWins(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := normalize([]chat.Message{
		confirmedMessage("a", "c1", chat.SenderUser, "old", base),
		confirmedMessage("a", "c1", chat.SenderUser, "new", base),
	})

	if len(out) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out))
	}
	if out[0].Text != "new" {
		t.Fatalf("expected later occurrence to win, got %q", out[0].Text)
	}
}

func TestNormalizeOrdersByCreatedAt(t *testing.T) {
	out := normalize([]chat.Message{
		confirmedMessage("b", "c1", chat.SenderUser, "later", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		confirmedMessage("a", "c1", chat.SenderUser, "earlier", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})

	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("expected order [a b], got [%s %s]", out[0].ID, out[1].ID)
	}
}

func TestNormalizeZeroTimestampSortsFirst(t *testing.T) {
	out := normalize([]chat.Message{
		confirmedMessage("b", "c1", chat.SenderUser, "dated", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		confirmedMessage("a", "c1", chat.SenderUser, "undated", time.Time{}),
	})

	if out[0].ID != "a" {
		t.Fatalf("expected undated message first, got %s", out[0].ID)
	}
}

func TestMergeSupersedesTemporary(t *testing.T) {
	tl := NewTimeline()
	tl.Append(chat.Message{
		ID:        "temp-user-1",
		ChatID:    "c1",
		Sender:    chat.SenderUser,
		Kind:      chat.KindPending,
		Text:      "Hello",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	changed := tl.Merge(confirmedMessage("real-42", "c1", chat.SenderUser, "Hello", time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)))
	if !changed {
		t.Fatal("expected merge to report a change")
	}

	got := tl.Snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].ID != "real-42" {
		t.Fatalf("expected temp message superseded by real-42, got %s", got[0].ID)
	}
}

func TestMergeDiscardsDuplicateID(t *testing.T) {
	tl := NewTimeline()
	msg := confirmedMessage("real-1", "c1", chat.SenderUser, "hi", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	if !tl.Merge(msg) {
		t.Fatal("first merge should change the timeline")
	}
	if tl.Merge(msg) {
		t.Fatal("duplicate delivery should be a no-op")
	}
	if tl.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", tl.Len())
	}
}

func TestMergeDoesNotSupersedeOnTextMismatch(t *testing.T) {
	tl := NewTimeline()
	tl.Append(chat.Message{
		ID:     "temp-user-1",
		ChatID: "c1",
		Sender: chat.SenderUser,
		Kind:   chat.KindPending,
		Text:   "Hello",
	})

	tl.Merge(confirmedMessage("real-1", "c1", chat.SenderUser, "Different", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	if tl.Len() != 2 {
		t.Fatalf("expected both messages kept, got %d", tl.Len())
	}
}

func TestSetTextUpdatesSingleRecord(t *testing.T) {
	tl := NewTimeline()
	placeholder := chat.NewStreamingPlaceholder("c1")
	tl.Append(placeholder)

	before := tl.Len()
	for _, text := range []string{"It ", "It depends.", "It depends. "} {
		if !tl.SetText(placeholder.ID, text) {
			t.Fatalf("SetText failed for %q", text)
		}
	}

	if tl.Len() != before {
		t.Fatalf("token updates changed message count: %d -> %d", before, tl.Len())
	}

	got := tl.Snapshot()
	if got[0].Text != "It depends. " {
		t.Fatalf("expected accumulated text, got %q", got[0].Text)
	}
}

func TestSetTextUnknownID(t *testing.T) {
	tl := NewTimeline()
	if tl.SetText("missing", "text") {
		t.Fatal("expected SetText to report missing id")
	}
}

func TestRemove(t *testing.T) {
	tl := NewTimeline()
	placeholder := chat.NewStreamingPlaceholder("c1")
	tl.Append(placeholder)

	if !tl.Remove(placeholder.ID) {
		t.Fatal("expected Remove to find the placeholder")
	}
	if tl.Len() != 0 {
		t.Fatalf("expected empty timeline, got %d messages", tl.Len())
	}
	if tl.Remove(placeholder.ID) {
		t.Fatal("second Remove should be a no-op")
	}
}
