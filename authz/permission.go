package authz

import "strings"

// Permissions checked by the diagnostics API.
const (
	ErrorsWrite       = "errors:write"
	LogsRead          = "logs:read"
	LogsWrite         = "logs:write"
	NotificationsRead = "notifications:read"
)

// FullAccess grants every permission.
const FullAccess = "*:*"

// ParseScope splits a space-delimited scope claim. An empty claim grants
// FullAccess, matching credentials issued before scopes existed.
func ParseScope(scope string) []string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return []string{FullAccess}
	}
	return fields
}
