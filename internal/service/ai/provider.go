package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/casefront/legalchat/backend/internal/config"
	"github.com/casefront/legalchat/backend/internal/model/chat"
)

// maxDocumentChars bounds how much of an uploaded document is handed to
// the model in one summarization request.
const maxDocumentChars = 24000

// Service streams legal-assistant replies through an eino chain.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt/model chain from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, cfg: cfg, chain: runnable}, nil
}

// StreamReply streams a reply to the user's text, given the conversation so
// far. Tokens are delivered in receipt order; onToken is never called after
// StreamReply returns.
func (s *Service) StreamReply(ctx context.Context, chatID string, history []chat.Message, text string, onToken func(string)) error {
	input := map[string]any{
		"system":  s.buildSystemPrompt(),
		"history": buildHistoryMessages(history, s.cfg.HistoryLimit),
		"query":   text,
	}

	if err := s.streamChain(ctx, input, onToken); err != nil {
		return err
	}
	log.Printf("[ai] streamed reply for chat=%s", chatID)
	return nil
}

// SummarizeFile streams a summary of an uploaded document. Binary content
// is rejected; the document text is embedded into the prompt, truncated to
// a bounded window.
func (s *Service) SummarizeFile(ctx context.Context, ownerID, lang, name string, blob []byte, onToken func(string)) error {
	if !utf8.Valid(blob) {
		return fmt.Errorf("document %s is not valid text", name)
	}

	content := truncateDocument(string(blob))

	query := fmt.Sprintf(
		"Summarize the following document (%s). Highlight parties, obligations, deadlines and any legal risks.\n\n%s",
		name, content,
	)

	input := map[string]any{
		"system":  s.buildSummarySystemPrompt(lang),
		"history": []*schema.Message(nil),
		"query":   query,
	}

	if err := s.streamChain(ctx, input, onToken); err != nil {
		return err
	}
	log.Printf("[ai] streamed summary of %s for user=%s", name, ownerID)
	return nil
}

func (s *Service) streamChain(ctx context.Context, input map[string]any, onToken func(string)) error {
	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to stream chain output: %w", err)
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		onToken(chunk.Content)
	}
}

// truncateDocument bounds the document to maxDocumentChars bytes without
// splitting a multi-byte rune at the cut.
func truncateDocument(content string) string {
	if len(content) <= maxDocumentChars {
		return content
	}
	cut := maxDocumentChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func (s *Service) buildSystemPrompt() string {
	return "You are a knowledgeable legal assistant. Answer questions about " +
		"law clearly and cautiously, cite the relevant legal concepts, and " +
		"remind the user that your answers are general information, not legal advice."
}

func (s *Service) buildSummarySystemPrompt(lang string) string {
	base := s.buildSystemPrompt()
	if lang == "" {
		return base
	}
	return fmt.Sprintf("%s Respond in the language with code %q.", base, lang)
}

func buildHistoryMessages(messages []chat.Message, limit int) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}

	startIdx := 0
	if len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if msg.Temporary() {
			continue
		}
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SenderAI:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
