// Package interrupt parses human-issued signals (reactions or leading
// keywords) into typed interrupt commands and dispatches them to loop
// actions. Parsing and dispatch are pure; delivery goes through the KV
// mailbox in this package.
package interrupt

import (
	"strings"
	"time"
)

// Type is one of the six interrupt commands a human can issue.
type Type string

const (
	// TypeStop ends the execution after a final checkpoint.
	TypeStop Type = "STOP"

	// TypeClarify injects guidance into the model context.
	TypeClarify Type = "CLARIFY"

	// TypeRetry rewinds the last assistant turn and tries again.
	TypeRetry Type = "RETRY"

	// TypeContinue overrides low-confidence warnings.
	TypeContinue Type = "CONTINUE"

	// TypeWrong marks the current direction as incorrect.
	TypeWrong Type = "WRONG"

	// TypeEscalate forces a model escalation.
	TypeEscalate Type = "ESCALATE"
)

// Command is a parsed interrupt. Ephemeral: observed once by the loop,
// recorded into the execution's audit log, then discarded.
type Command struct {
	Type      Type      `json:"type"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// emojiTypes maps reaction emoji to interrupt types.
var emojiTypes = map[string]Type{
	"🛑": TypeStop,
	"✋": TypeStop,
	"❓": TypeClarify,
	"🔄": TypeRetry,
	"✅": TypeContinue,
	"👍": TypeContinue,
	"❌": TypeWrong,
	"👎": TypeWrong,
	"⬆️": TypeEscalate,
	"🚀": TypeEscalate,
}

// keywordTypes maps leading keywords to interrupt types.
// Matching is a case-insensitive prefix match on the first word.
var keywordTypes = map[string]Type{
	"stop":     TypeStop,
	"halt":     TypeStop,
	"clarify":  TypeClarify,
	"retry":    TypeRetry,
	"continue": TypeContinue,
	"proceed":  TypeContinue,
	"wrong":    TypeWrong,
	"escalate": TypeEscalate,
}

// ParseReaction maps a reaction emoji to a command.
// Returns false for reactions that are not interrupt signals.
func ParseReaction(emoji string, at time.Time) (Command, bool) {
	typ, ok := emojiTypes[strings.TrimSpace(emoji)]
	if !ok {
		return Command{}, false
	}
	return Command{Type: typ, Timestamp: at}, true
}

// ParseText maps a text message to a command by its leading keyword.
// Any text after the keyword becomes the command's message.
// Returns false for text that does not start with an interrupt keyword.
func ParseText(text string, at time.Time) (Command, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{}, false
	}

	word := trimmed
	rest := ""
	if i := strings.IndexAny(trimmed, " \t\n"); i >= 0 {
		word = trimmed[:i]
		rest = strings.TrimSpace(trimmed[i:])
	}
	word = strings.TrimRight(word, ":,.!")

	typ, ok := keywordTypes[strings.ToLower(word)]
	if !ok {
		return Command{}, false
	}
	return Command{Type: typ, Message: rest, Timestamp: at}, true
}
