// Package errors normalizes heterogeneous failures into a single taxonomy.
//
// Every failure that reaches the toolkit (HTTP status errors, connection
// failures, plain Go errors, arbitrary values) is turned into an immutable
// *ClassifiedError carrying a Kind, a retryability flag, a user-facing message
// and an optional SuggestedAction. Classification never fails.
//
//	ce := errors.Classify(err, errors.Context{Component: "VideoList", Action: "fetch_data"})
//	if ce.Retryable() {
//	    // schedule a retry
//	}
package errors
