package errors

import (
	"maps"
	"time"
)

// Context is the metadata attached to a classified error: where it happened,
// what the user was doing and which attempt produced it.
type Context struct {
	Component      string         `json:"component,omitempty"`
	Action         string         `json:"action,omitempty"`
	AccountID      string         `json:"accountId,omitempty"`
	VideoID        string         `json:"videoId,omitempty"`
	URL            string         `json:"url,omitempty"`
	RetryCount     int            `json:"retryCount,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Well-known values for Context.Action that carry refinement rules.
const (
	OpDownload  = "download"
	OpAnalysis  = "analysis"
	OpFetchData = "fetch_data"
)

// IsZero reports whether no field of c is set.
func (c Context) IsZero() bool {
	return c.Component == "" && c.Action == "" && c.AccountID == "" && c.VideoID == "" &&
		c.URL == "" && c.RetryCount == 0 && len(c.AdditionalData) == 0 && c.Timestamp.IsZero()
}

// Clone returns a deep copy of c.
func (c Context) Clone() Context {
	if c.AdditionalData != nil {
		c.AdditionalData = maps.Clone(c.AdditionalData)
	}
	return c
}

// WithRetryCount returns a copy of c with RetryCount set.
func (c Context) WithRetryCount(n int) Context {
	out := c.Clone()
	out.RetryCount = n
	return out
}

// WithData returns a copy of c with a single additional data key set.
func (c Context) WithData(key string, value any) Context {
	out := c.Clone()
	if out.AdditionalData == nil {
		out.AdditionalData = make(map[string]any, 1)
	}
	out.AdditionalData[key] = value
	return out
}

// Merge overlays the non-zero fields of o on top of c.
func (c Context) Merge(o Context) Context {
	out := c.Clone()
	if o.Component != "" {
		out.Component = o.Component
	}
	if o.Action != "" {
		out.Action = o.Action
	}
	if o.AccountID != "" {
		out.AccountID = o.AccountID
	}
	if o.VideoID != "" {
		out.VideoID = o.VideoID
	}
	if o.URL != "" {
		out.URL = o.URL
	}
	if o.RetryCount != 0 {
		out.RetryCount = o.RetryCount
	}
	if !o.Timestamp.IsZero() {
		out.Timestamp = o.Timestamp
	}
	if len(o.AdditionalData) > 0 {
		if out.AdditionalData == nil {
			out.AdditionalData = make(map[string]any, len(o.AdditionalData))
		}
		maps.Copy(out.AdditionalData, o.AdditionalData)
	}
	return out
}
