package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// replyInput describes what the streaming response driver should answer.
// A non-empty filePath selects file mode.
type replyInput struct {
	text     string
	filePath string
	fileName string
}

// respond is the streaming response driver. A second call while one is in
// flight is a silent no-op, so fire-and-forget callers (the first-message
// trigger and the submit flow) can race without starting two streams.
func (c *Controller) respond(ctx context.Context, in replyInput) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return nil
	}
	c.streaming = true
	c.loading = true
	c.failed = false
	c.mu.Unlock()
	c.notifyWatchers()

	defer func() {
		c.mu.Lock()
		c.streaming = false
		c.loading = false
		c.mu.Unlock()
		c.notifyWatchers()
	}()

	if c.provider == nil {
		log.Printf("[session] no AI provider configured, skipping response for chat=%s", c.chatID)
		return nil
	}

	// History snapshot before the placeholder exists. The question itself
	// travels as the query, so its confirmed copy at the tail is dropped
	// rather than shown to the provider twice.
	history := c.timeline.Snapshot()
	if n := len(history); n > 0 && history[n-1].Sender == chat.SenderUser && history[n-1].Text == in.text {
		history = history[:n-1]
	}

	placeholder := chat.NewStreamingPlaceholder(c.chatID)
	c.timeline.Append(placeholder)

	var acc strings.Builder
	onToken := func(token string) {
		acc.WriteString(token)
		c.timeline.SetText(placeholder.ID, acc.String())
	}

	var streamErr error
	if in.filePath != "" {
		streamErr = c.respondToFile(ctx, in, onToken)
	} else {
		streamErr = c.provider.StreamReply(ctx, c.chatID, history, in.text, onToken)
	}
	if streamErr != nil {
		c.timeline.Remove(placeholder.ID)
		c.setFailed()
		return fmt.Errorf("response stream failed: %w", streamErr)
	}

	final := acc.String()
	if strings.TrimSpace(final) == "" {
		// Provider finished without content; leave no stuck indicator.
		c.timeline.Remove(placeholder.ID)
		return nil
	}

	confirmed, err := c.store.PersistMessage(ctx, chat.Message{
		ChatID: c.chatID,
		Sender: chat.SenderAI,
		Text:   final,
	})
	if err != nil {
		c.timeline.Remove(placeholder.ID)
		c.setFailed()
		return fmt.Errorf("failed to persist response: %w", err)
	}

	// The confirmed row supersedes the placeholder (same sender, same
	// text); the realtime push for it is then a duplicate and is dropped.
	c.timeline.Merge(confirmed)
	return nil
}

// respondToFile resolves the stored attachment and streams a summary.
func (c *Controller) respondToFile(ctx context.Context, in replyInput, onToken func(string)) error {
	if c.files == nil {
		return fmt.Errorf("file storage is not configured")
	}

	rc, err := c.files.Open(in.filePath)
	if err != nil {
		return fmt.Errorf("failed to open attachment %s: %w", in.filePath, err)
	}
	defer rc.Close()

	blob, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("failed to read attachment %s: %w", in.filePath, err)
	}

	return c.provider.SummarizeFile(ctx, c.userID, c.lang, in.fileName, blob, onToken)
}
