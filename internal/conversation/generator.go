package conversation

import (
	"context"
	"strings"

	"github.com/suPer8Hu/community-chat/internal/ai"
	"github.com/suPer8Hu/community-chat/internal/common"
)

const systemPrompt = `You write realistic group-chat conversations for a community app.
Output one message per line in the exact form participantId|||messageText.
Use short lowercase participant ids such as user1, user2, user3.
Do not number the lines and do not add any other text.`

// Generator asks the language model for a synthetic multi-party conversation
// and returns its raw delimited-line text.
type Generator struct {
	provider ai.Provider
}

func NewGenerator(provider ai.Provider) *Generator {
	return &Generator{provider: provider}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", common.Missing("prompt")
	}
	out, err := g.provider.Chat(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
