// Package authz decides which API routes a principal may call.
//
// Permissions use a "resource:action" format and are granted by scope
// patterns with wildcards, so "logs:*" covers "logs:read" and "logs:write"
// and "*:*" covers everything:
//
//	scopes := authz.ParseScope("errors:write notifications:read")
//	authz.MatchAny(scopes, authz.ErrorsWrite) // true
//	authz.MatchAny(scopes, authz.LogsRead)    // false
//
// The package has no dependencies, so auth and the HTTP middleware can both
// import it.
package authz
