// Package prompt composes the chat/question/summary text sent to the LLM
// collaborator. Every function here is pure and deterministic: no I/O, no
// LLM calls, no database access. Composition is keyed by
// (conversation_kind, mode, operation) per the nine named operations.
package prompt

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/docuchat/pkg/models"
)

// Composer builds prompt text. Stateless and safe for concurrent use —
// mirrors the teacher's PromptBuilder shape without its MCP-registry
// dependency, since this domain has no tool-calling surface to describe.
type Composer struct{}

// NewComposer creates a Composer. It carries no state; the constructor
// exists so callers can depend on an interface/value the same way the rest
// of the core depends on its collaborators.
func NewComposer() *Composer { return &Composer{} }

// SystemMain composes the system message for a main (whole-document)
// conversation in windowed mode.
func (c *Composer) SystemMain(chunkText string) string {
	return fmt.Sprintf(systemMainTemplate, chunkText)
}

// SystemHighlight composes the system message for a highlight conversation
// in windowed mode.
func (c *Composer) SystemHighlight(highlightText string) string {
	return fmt.Sprintf(systemHighlightTemplate, highlightText)
}

// SystemFullContextMain composes the system message for a main conversation
// when the full document is sent instead of the current chunk.
func (c *Composer) SystemFullContextMain(fullDocumentText string) string {
	return fmt.Sprintf(systemFullContextMainTemplate, fullDocumentText)
}

// SystemFullContextHighlight composes the system message for a highlight
// conversation in full-context mode.
func (c *Composer) SystemFullContextHighlight(highlightText, fullDocumentText string) string {
	return fmt.Sprintf(systemFullContextHighlightTemplate, highlightText, fullDocumentText)
}

// System dispatches to the right system-message template for the given
// kind/mode pair, the single entry point Session Handlers call.
func (c *Composer) System(kind models.ConversationKind, mode models.ContextMode, chunkOrFullText, highlightText string) string {
	switch {
	case kind == models.ConversationHighlight && mode == models.ContextFull:
		return c.SystemFullContextHighlight(highlightText, chunkOrFullText)
	case kind == models.ConversationHighlight:
		return c.SystemHighlight(highlightText)
	case mode == models.ContextFull:
		return c.SystemFullContextMain(chunkOrFullText)
	default:
		return c.SystemMain(chunkOrFullText)
	}
}

// UserMain composes the user message for a main conversation: the user's
// message passes through unchanged.
func (c *Composer) UserMain(userMessage string) string {
	return fmt.Sprintf(userMainTemplate, userMessage)
}

// UserHighlight composes the user message for a highlight conversation,
// anchoring it to the highlighted text.
func (c *Composer) UserHighlight(highlightText, userMessage string) string {
	return fmt.Sprintf(userHighlightTemplate, highlightText, userMessage)
}

// User dispatches to the right user-message template for kind.
func (c *Composer) User(kind models.ConversationKind, highlightText, userMessage string) string {
	if kind == models.ConversationHighlight {
		return c.UserHighlight(highlightText, userMessage)
	}
	return c.UserMain(userMessage)
}

// QuestionMain composes the question-generation prompt for a main
// conversation's current chunk.
func (c *Composer) QuestionMain(count int, previousQuestions []string, chunkText string) string {
	return fmt.Sprintf(questionMainTemplate, count, joinOrNone(previousQuestions), chunkText)
}

// QuestionHighlight composes the question-generation prompt for a
// highlighted passage.
func (c *Composer) QuestionHighlight(count int, previousQuestions []string, highlightText string) string {
	return fmt.Sprintf(questionHighlightTemplate, count, joinOrNone(previousQuestions), highlightText)
}

// Question dispatches to the right question-generation template for kind.
func (c *Composer) Question(kind models.ConversationKind, count int, previousQuestions []string, chunkOrHighlightText string) string {
	if kind == models.ConversationHighlight {
		return c.QuestionHighlight(count, previousQuestions, chunkOrHighlightText)
	}
	return c.QuestionMain(count, previousQuestions, chunkOrHighlightText)
}

// Summary composes the prompt used to merge a highlight conversation's
// history back into its parent main conversation.
func (c *Composer) Summary(highlightText, conversationHistory string) string {
	return fmt.Sprintf(summaryTemplate, highlightText, conversationHistory)
}

func joinOrNone(questions []string) string {
	if len(questions) == 0 {
		return "none"
	}
	return strings.Join(questions, "; ")
}
