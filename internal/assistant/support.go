package assistant

import (
	"context"
	"fmt"
	"strings"
)

const SupportUnavailable = "I'm sorry, I'm having trouble connecting to my knowledge base right now. Please try again in a moment."

const supportPersona = `You are a friendly and knowledgeable support agent for RideLink, an intercity carpooling platform in India.
Give helpful, concise and polite answers about booking rides, offering rides, payments, safety features and user verification.
If you don't know an answer, say you need to check with the support team. Keep answers brief and easy to understand.`

// Turn is one line of a support conversation.
type Turn struct {
	Role string `json:"role"` // "user" or "agent"
	Text string `json:"text"`
}

type SupportReply struct {
	Reply  string `json:"reply"`
	Source Source `json:"source"`
}

func (a *Assistant) Support(ctx context.Context, question string, history []Turn) SupportReply {
	var b strings.Builder
	b.WriteString(supportPersona)
	b.WriteString("\n\n")
	for _, t := range history {
		role := "User"
		if t.Role == "agent" {
			role = "Agent"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, strings.TrimSpace(t.Text))
	}
	fmt.Fprintf(&b, "User: %s\nAgent:", strings.TrimSpace(question))

	out, err := a.text(ctx, b.String())
	if err != nil {
		a.fallback("support", err)
		return SupportReply{Reply: SupportUnavailable, Source: SourceFallback}
	}
	return SupportReply{Reply: out, Source: SourceAI}
}
