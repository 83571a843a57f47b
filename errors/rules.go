package errors

import "strings"

// RetryOverride tells a rule what to do with the retryable flag.
type RetryOverride int

const (
	RetryKeep RetryOverride = iota
	RetryForce
	RetryNever
)

// ActionRule refines a classification for a specific Context.Action.
// Rules never apply to terminal kinds (not_found, permission).
type ActionRule struct {
	Action string
	// Kinds limits the rule to these kinds; empty matches any non-terminal kind.
	Kinds []Kind
	// Contains further limits the rule to raw messages containing this
	// lowercase substring.
	Contains    string
	UserMessage string
	Retry       RetryOverride
	Suggested   SuggestedAction
}

func (r ActionRule) applies(action string, kind Kind, lowerRaw string) bool {
	if r.Action != action || kind.Terminal() {
		return false
	}
	if r.Contains != "" && !strings.Contains(lowerRaw, r.Contains) {
		return false
	}
	if len(r.Kinds) == 0 {
		return true
	}
	for _, k := range r.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultRules holds the refinements for downloads, analysis and data fetches.
var DefaultRules = []ActionRule{
	{
		Action:      OpDownload,
		Kinds:       []Kind{KindServer, KindNetwork},
		UserMessage: "The download was interrupted by a temporary problem. It will be retried.",
		Retry:       RetryForce,
		Suggested:   ActionRetry,
	},
	{
		Action:      OpDownload,
		UserMessage: "The download could not be completed. Please try again.",
	},
	{
		Action:      OpAnalysis,
		Contains:    "not downloaded",
		UserMessage: "The video must be downloaded before it can be analyzed.",
		Retry:       RetryNever,
		Suggested:   ActionCheckInput,
	},
	{
		Action:      OpAnalysis,
		Kinds:       []Kind{KindServer, KindNetwork, KindClient},
		UserMessage: "Analysis is temporarily unavailable. Please try again in a moment.",
		Retry:       RetryForce,
		Suggested:   ActionRetry,
	},
	{
		Action:      OpFetchData,
		Kinds:       []Kind{KindServer, KindNetwork},
		UserMessage: "Could not load the latest data. Retrying may help.",
		Retry:       RetryForce,
		Suggested:   ActionRetry,
	},
	{
		Action:      OpFetchData,
		Kinds:       []Kind{KindValidation},
		UserMessage: "The data request was rejected. Please adjust your filters and try again.",
	},
}
