package authz

import "strings"

// MatchPattern reports whether pattern grants required.
//
//   - "*:*" and "*" match everything
//   - "logs:*" matches "logs:read" and "logs:write"
//   - "*:read" matches "logs:read" and "notifications:read"
//   - "logs:read" matches only itself
//
// Values without a ":" are compared whole, with "*" as the only wildcard.
func MatchPattern(pattern, required string) bool {
	if pattern == required || pattern == "*" || pattern == FullAccess {
		return true
	}

	patRes, patAct, patOK := strings.Cut(pattern, ":")
	reqRes, reqAct, reqOK := strings.Cut(required, ":")
	if !patOK || !reqOK {
		return false
	}
	return matchWildcard(patRes, reqRes) && matchWildcard(patAct, reqAct)
}

// MatchAny reports whether any pattern grants required.
func MatchAny(patterns []string, required string) bool {
	for _, p := range patterns {
		if MatchPattern(p, required) {
			return true
		}
	}
	return false
}

func matchWildcard(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
