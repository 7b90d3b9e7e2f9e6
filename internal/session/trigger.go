package session

import (
	"context"
	"log"

	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// maybeTriggerFirstReply covers the flow where a chat's first user message
// was persisted before any controller existed for it (for example from a
// landing-page submit): if the most recent message is an unanswered user
// message, the streaming response driver is invoked once.
//
// The latch consumes itself on the first evaluation whether or not the
// driver fires; it resets only when the controller is recreated.
func (c *Controller) maybeTriggerFirstReply() {
	c.mu.Lock()
	if c.triggered {
		c.mu.Unlock()
		return
	}
	c.triggered = true
	c.mu.Unlock()

	ctx := context.Background()

	count, err := c.store.MessageCount(ctx, c.chatID)
	if err != nil {
		log.Printf("[session] first-reply check failed for chat=%s: %v", c.chatID, err)
		return
	}
	if count == 0 {
		return
	}

	latest, err := c.store.LatestMessage(ctx, c.chatID)
	if err != nil {
		log.Printf("[session] first-reply check failed for chat=%s: %v", c.chatID, err)
		return
	}
	if latest == nil || latest.Sender != chat.SenderUser {
		return
	}

	// The user message must be genuinely unanswered: no AI message may
	// exist with a strictly later timestamp.
	history, err := c.store.FetchAllMessages(ctx, c.chatID)
	if err != nil {
		log.Printf("[session] first-reply check failed for chat=%s: %v", c.chatID, err)
		return
	}
	for _, m := range history {
		if m.Sender == chat.SenderAI && m.CreatedAt.After(latest.CreatedAt) {
			return
		}
	}

	in := replyInput{text: latest.Text, filePath: latest.FilePath, fileName: latest.FileName}
	go func() {
		if err := c.respond(ctx, in); err != nil {
			log.Printf("[session] first reply failed for chat=%s: %v", c.chatID, err)
		}
	}()
}
