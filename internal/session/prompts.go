package session

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/madoguchin/internal/call"
)

const systemPromptTemplate = `You are a helpful and friendly customer support AI assistant.

Your goal is to have a natural conversation with customers and gather key information they need help with.

During the conversation:
- Be concise and natural in your responses (aim for 1-3 sentences)
- Ask clarifying questions to understand the customer's needs
- Be empathetic and professional
- Gather all relevant information before providing solutions

Information to gather:
%s

Keep the conversation flowing naturally. Don't ask for all information at once.`

const (
	greetingFallbackText = "Hello! Thank you for contacting customer support. How can I help you today?"
	replyFallbackText    = "I apologize, but I'm having trouble processing that. Could you please repeat?"
	titleFallbackText    = "Customer Support Call"

	errorMessageTranscription = "Sorry, I couldn't hear that. Could you please try again?"
	errorMessageReasoning     = "Sorry, I'm having trouble responding right now. Please try again."
)

const compactionPromptTemplate = `Summarize the following customer support conversation so the assistant can continue it without the full history.
Preserve every fact the customer shared, everything already resolved, and any open questions.

Previous summary (may be empty):
%s

Messages being condensed:
%s

Reply with the updated summary only.`

const closingSummaryPromptTemplate = `Based on the following conversation, provide a concise summary of:
1. The customer's main issue or request
2. Key information gathered
3. Resolution provided (if any)
4. Next steps (if any)

Conversation:
%s

Provide the summary in a clear, structured format.`

const callTitlePromptTemplate = `Generate a short, descriptive title (3-6 words) for this customer support call based on the conversation.
Focus on the main topic or issue discussed.

Conversation:
%s

Title:`

func buildSystemPrompt(items []call.InformationItem) string {
	if len(items) == 0 {
		return fmt.Sprintf(systemPromptTemplate, "- Understand customer's needs and issues")
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %s", item.Title, item.Description))
	}
	return fmt.Sprintf(systemPromptTemplate, strings.Join(lines, "\n"))
}

func buildCompactionPrompt(previousSummary string, dropped []call.Message) string {
	if previousSummary == "" {
		previousSummary = "(none)"
	}
	return fmt.Sprintf(compactionPromptTemplate, previousSummary, renderConversation(dropped))
}

func buildClosingSummaryPrompt(messages []call.Message) string {
	return fmt.Sprintf(closingSummaryPromptTemplate, renderConversation(messages))
}

func buildCallTitlePrompt(messages []call.Message) string {
	text := renderConversation(messages)
	if len(text) > 500 {
		text = text[:500]
	}
	return fmt.Sprintf(callTitlePromptTemplate, text)
}

func renderConversation(messages []call.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == call.RoleSystem {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Text))
	}
	return strings.Join(lines, "\n")
}
