package errors

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubTransportError struct {
	status int
	body   string
}

func (e *stubTransportError) Error() string { return fmt.Sprintf("status %d", e.status) }

func (e *stubTransportError) ClassifierInput() Input {
	return HTTPError{Status: e.status, Body: []byte(e.body), Err: e}
}

func TestClassify_Totality(t *testing.T) {
	values := []any{
		nil,
		"just a string",
		42,
		struct{ A int }{1},
		fmt.Errorf("plain"),
		fmt.Errorf(""),
		HTTPError{Status: 418},
		HTTPError{},
		ConnectivityError{},
		GenericError{Message: "Failed to fetch"},
		Unknown{Value: []int{1, 2}},
		context.Canceled,
		(*os.PathError)(nil),
		(*ClassifiedError)(nil),
		(*stubTransportError)(nil),
		fmt.Errorf("wrapped: %w", (*ClassifiedError)(nil)),
	}
	for i, v := range values {
		ce := Classify(v, Context{})
		if ce == nil {
			t.Fatalf("case %d: nil result", i)
		}
		if !ce.Kind().Valid() {
			t.Errorf("case %d: invalid kind %q", i, ce.Kind())
		}
		if ce.ID() == "" || ce.UserMessage() == "" {
			t.Errorf("case %d: missing id or user message", i)
		}
		if ce.Context().Timestamp.IsZero() {
			t.Errorf("case %d: timestamp not set", i)
		}
	}
}

func TestClassify_TypedNilIsUnknown(t *testing.T) {
	for _, v := range []any{(*os.PathError)(nil), (*ClassifiedError)(nil)} {
		ce := Classify(v, Context{Component: "c"})
		if ce.Kind() != KindUnknown {
			t.Errorf("%T: kind = %q, want unknown", v, ce.Kind())
		}
		if ce.Unwrap() != nil {
			t.Errorf("%T: cause = %v, want nil", v, ce.Unwrap())
		}
	}
}

func TestClassify_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
		action    SuggestedAction
	}{
		{500, KindServer, true, ActionRetry},
		{503, KindServer, true, ActionRetry},
		{599, KindServer, true, ActionRetry},
		{404, KindNotFound, false, ActionGoBack},
		{403, KindPermission, false, ActionContactSupport},
		{401, KindPermission, false, ActionLogin},
		{400, KindValidation, false, ActionCheckInput},
		{422, KindValidation, false, ActionCheckInput},
		{429, KindValidation, false, ActionCheckInput},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			ce := Classify(HTTPError{Status: tt.status}, Context{})
			if ce.Kind() != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, ce.Kind())
			}
			if ce.Retryable() != tt.retryable {
				t.Errorf("expected retryable=%v", tt.retryable)
			}
			if ce.SuggestedAction() != tt.action {
				t.Errorf("expected action %s, got %s", tt.action, ce.SuggestedAction())
			}
			if ce.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, ce.StatusCode())
			}
		})
	}
}

func TestClassify_ValidationUsesServerMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Title is too long"}`, "Title is too long"},
		{"error field", `{"error":"bad cursor"}`, "bad cursor"},
		{"nested error", `{"error":{"message":"limit out of range"}}`, "limit out of range"},
		{"detail field", `{"detail":"missing account"}`, "missing account"},
		{"plain text", `quota exceeded`, "quota exceeded"},
		{"html page", `<html>nope</html>`, MsgValidation},
		{"empty", ``, MsgValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(HTTPError{Status: 400, Body: []byte(tt.body)}, Context{})
			if ce.UserMessage() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, ce.UserMessage())
			}
		})
	}
}

func TestClassify_NoResponseIsNetwork(t *testing.T) {
	for _, v := range []any{
		HTTPError{Status: 0, Err: fmt.Errorf("dial tcp: refused")},
		ConnectivityError{Err: fmt.Errorf("socket hang up")},
		&net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")},
		fmt.Errorf("waiting: %w", context.DeadlineExceeded),
	} {
		ce := Classify(v, Context{})
		if ce.Kind() != KindNetwork || !ce.Retryable() || ce.SuggestedAction() != ActionCheckConnection {
			t.Errorf("%v: expected retryable network, got %s retryable=%v", v, ce.Kind(), ce.Retryable())
		}
	}
}

func TestClassify_MessagePatterns(t *testing.T) {
	tests := []struct {
		msg       string
		kind      Kind
		retryable bool
	}{
		{"Failed to fetch", KindNetwork, true},
		{"NetworkError when attempting to fetch resource", KindNetwork, true},
		{"Permission denied for bucket", KindPermission, false},
		{"UNAUTHORIZED", KindPermission, false},
		{"video not found", KindNotFound, false},
		{"cannot read property of undefined", KindClient, true},
		// network wins over not found by priority.
		{"network resource not found", KindNetwork, true},
		{"context canceled", KindClient, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			ce := Classify(fmt.Errorf("%s", tt.msg), Context{})
			if ce.Kind() != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, ce.Kind())
			}
			if ce.Retryable() != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, ce.Retryable())
			}
			if ce.RawMessage() != tt.msg {
				t.Errorf("raw message changed: %q", ce.RawMessage())
			}
		})
	}
}

func TestClassify_CanceledIsNotRetried(t *testing.T) {
	ce := Classify(fmt.Errorf("load: %w", context.Canceled), Context{})
	if ce.Kind() != KindClient || ce.Retryable() {
		t.Fatalf("expected non-retryable client, got %s retryable=%v", ce.Kind(), ce.Retryable())
	}
	if ce.UserMessage() != MsgCanceled {
		t.Errorf("expected canceled message, got %q", ce.UserMessage())
	}
}

func TestClassify_FailedToFetchScenario(t *testing.T) {
	ce := Classify(GenericError{Name: "TypeError", Message: "Failed to fetch"}, Context{Component: "Dashboard"})
	if ce.Kind() != KindNetwork || !ce.Retryable() {
		t.Fatalf("expected retryable network, got %s", ce.Kind())
	}
	if !strings.Contains(strings.ToLower(ce.UserMessage()), "internet connection") {
		t.Errorf("expected connectivity message, got %q", ce.UserMessage())
	}
}

func TestClassify_NonErrorValuesAreUnknown(t *testing.T) {
	ce := Classify(map[string]int{"code": 7}, Context{})
	if ce.Kind() != KindUnknown || ce.Retryable() {
		t.Fatalf("expected non-retryable unknown, got %s", ce.Kind())
	}
	if ce.RawMessage() != "map[code:7]" {
		t.Errorf("expected coerced string, got %q", ce.RawMessage())
	}
	if ce.UserMessage() != MsgUnknown {
		t.Errorf("expected generic message, got %q", ce.UserMessage())
	}
}

func TestClassify_AdapterErrors(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &stubTransportError{status: 503})
	ce := Classify(err, Context{})
	if ce.Kind() != KindServer || ce.StatusCode() != 503 {
		t.Fatalf("expected server 503, got %s %d", ce.Kind(), ce.StatusCode())
	}
}

func TestClassify_ActionRefinements(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		action    string
		kind      Kind
		retryable bool
		suggested SuggestedAction
	}{
		{"download server", HTTPError{Status: 502}, OpDownload, KindServer, true, ActionRetry},
		{"download network", ConnectivityError{}, OpDownload, KindNetwork, true, ActionRetry},
		{"download not found untouched", HTTPError{Status: 404}, OpDownload, KindNotFound, false, ActionGoBack},
		{"download forbidden untouched", HTTPError{Status: 403}, OpDownload, KindPermission, false, ActionContactSupport},
		{"analysis before download", fmt.Errorf("Video not downloaded yet"), OpAnalysis, KindClient, false, ActionCheckInput},
		{"analysis server", HTTPError{Status: 500}, OpAnalysis, KindServer, true, ActionRetry},
		{"analysis unauthorized untouched", HTTPError{Status: 401}, OpAnalysis, KindPermission, false, ActionLogin},
		{"fetch network", fmt.Errorf("failed to fetch"), OpFetchData, KindNetwork, true, ActionRetry},
		{"fetch validation keeps retryable", HTTPError{Status: 400}, OpFetchData, KindValidation, false, ActionCheckInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.input, Context{Action: tt.action})
			if ce.Kind() != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, ce.Kind())
			}
			if ce.Retryable() != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, ce.Retryable())
			}
			if ce.SuggestedAction() != tt.suggested {
				t.Errorf("expected action %s, got %s", tt.suggested, ce.SuggestedAction())
			}
		})
	}
}

func TestClassify_ReissuesClassifiedErrors(t *testing.T) {
	first := Classify(HTTPError{Status: 500}, Context{Component: "Player", Action: OpDownload})
	second := Classify(fmt.Errorf("wrapped: %w", first), Context{RetryCount: 3})

	if second.ID() == first.ID() {
		t.Error("reissued error must get a new ID")
	}
	if second.Kind() != KindServer || second.StatusCode() != 500 {
		t.Errorf("classification should be preserved, got %s %d", second.Kind(), second.StatusCode())
	}
	ctx := second.Context()
	if ctx.Component != "Player" || ctx.RetryCount != 3 {
		t.Errorf("expected merged context, got %+v", ctx)
	}
	if first.Context().RetryCount != 0 {
		t.Error("original must stay immutable")
	}
}

func TestClassify_UniqueIDs(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	c := NewClassifier(WithClock(func() time.Time { return fixed }))

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				id := c.Classify(fmt.Errorf("x"), Context{}).ID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 2000 {
		t.Errorf("expected 2000 unique ids, got %d", len(seen))
	}
	for id := range seen {
		if !strings.HasPrefix(id, "err_1700000000000_") {
			t.Fatalf("unexpected id format %q", id)
		}
		break
	}
}

func TestClassify_KeepsCallerTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ce := Classify(fmt.Errorf("x"), Context{Timestamp: ts})
	if !ce.Context().Timestamp.Equal(ts) {
		t.Errorf("expected caller timestamp, got %v", ce.Context().Timestamp)
	}
}

func TestClassifier_CustomPatterns(t *testing.T) {
	c := NewClassifier(WithPatterns(PatternTable{
		{Name: "quota", Substrings: []string{"quota"}, Kind: KindServer, Retryable: true, UserMessage: "slow down"},
	}))
	ce := c.Classify(fmt.Errorf("Quota exceeded"), Context{})
	if ce.Kind() != KindServer || ce.UserMessage() != "slow down" {
		t.Errorf("custom pattern not applied: %s %q", ce.Kind(), ce.UserMessage())
	}
	if c.Classify(fmt.Errorf("failed to fetch"), Context{}).Kind() != KindClient {
		t.Error("replaced table should not contain default patterns")
	}
}
