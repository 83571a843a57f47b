package errors

import "strings"

// Pattern maps message substrings to a classification.
type Pattern struct {
	Name        string
	Substrings  []string
	Kind        Kind
	Retryable   bool
	Action      SuggestedAction
	UserMessage string
}

// Matches reports whether the lowercased message contains any substring.
func (p Pattern) Matches(lower string) bool {
	for _, s := range p.Substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// PatternTable is an ordered list of patterns; the first match wins.
type PatternTable []Pattern

// FallbackPattern applies when no entry of a table matches.
var FallbackPattern = Pattern{
	Name:        "client",
	Kind:        KindClient,
	Retryable:   true,
	Action:      ActionRetry,
	UserMessage: MsgClient,
}

// DefaultPatterns is the message table used for errors without a status code.
var DefaultPatterns = PatternTable{
	{
		Name:        "network",
		Substrings:  []string{"network", "fetch"},
		Kind:        KindNetwork,
		Retryable:   true,
		Action:      ActionCheckConnection,
		UserMessage: MsgNetwork,
	},
	{
		Name:        "permission",
		Substrings:  []string{"permission"},
		Kind:        KindPermission,
		Action:      ActionContactSupport,
		UserMessage: MsgPermissionText,
	},
	{
		Name:        "unauthorized",
		Substrings:  []string{"unauthorized"},
		Kind:        KindPermission,
		Action:      ActionLogin,
		UserMessage: MsgUnauthorized,
	},
	{
		Name:        "not_found",
		Substrings:  []string{"not found"},
		Kind:        KindNotFound,
		Action:      ActionGoBack,
		UserMessage: MsgNotFound,
	},
	{
		Name:        "canceled",
		Substrings:  []string{"context canceled"},
		Kind:        KindClient,
		Action:      ActionRefresh,
		UserMessage: MsgCanceled,
	},
}

// Match returns the first pattern matching msg, or FallbackPattern.
func (t PatternTable) Match(msg string) Pattern {
	lower := strings.ToLower(msg)
	for _, p := range t {
		if p.Matches(lower) {
			return p
		}
	}
	return FallbackPattern
}

// KindForMessage classifies a bare message with DefaultPatterns.
func KindForMessage(msg string) Kind {
	return DefaultPatterns.Match(msg).Kind
}
