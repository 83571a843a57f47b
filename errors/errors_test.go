package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_UsesKindDefaults(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
		action    SuggestedAction
	}{
		{KindNetwork, true, ActionCheckConnection},
		{KindServer, true, ActionRetry},
		{KindClient, true, ActionRetry},
		{KindValidation, false, ActionCheckInput},
		{KindPermission, false, ActionContactSupport},
		{KindNotFound, false, ActionGoBack},
		{KindUnknown, false, ActionRefresh},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "boom")
			if err.Kind() != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, err.Kind())
			}
			if err.Retryable() != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, err.Retryable())
			}
			if err.SuggestedAction() != tt.action {
				t.Errorf("expected action %s, got %s", tt.action, err.SuggestedAction())
			}
			if err.UserMessage() != DefaultMessage(tt.kind) {
				t.Errorf("unexpected user message %q", err.UserMessage())
			}
		})
	}
}

func TestClassifiedError_ErrorFormat(t *testing.T) {
	err := New(KindServer, "upstream exploded")
	if got := err.Error(); got != "server: upstream exploded" {
		t.Errorf("unexpected Error() %q", got)
	}
}

func TestClassifiedError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	ce := Classify(cause, Context{})
	if !stderrors.Is(ce, cause) {
		t.Error("classified error should unwrap to its cause")
	}
	if ce.Cause() != cause {
		t.Error("Cause should return the original error")
	}
}

func TestClassifiedError_ContextIsCopied(t *testing.T) {
	ce := Classify(fmt.Errorf("x"), Context{AdditionalData: map[string]any{"a": 1}})
	ctx := ce.Context()
	ctx.AdditionalData["a"] = 2
	ctx.Component = "mutated"

	again := ce.Context()
	if again.AdditionalData["a"] != 1 {
		t.Error("context additional data should not be shared")
	}
	if again.Component != "" {
		t.Error("context should not be mutable through the accessor")
	}
}

func TestClassifiedError_MarshalJSON(t *testing.T) {
	ce := Classify(HTTPError{Status: 404}, Context{Component: "VideoPage", Action: "load"})
	data, err := json.Marshal(ce)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["type"] != "not_found" {
		t.Errorf("expected type not_found, got %v", out["type"])
	}
	if out["suggestedAction"] != "go_back" {
		t.Errorf("expected suggestedAction go_back, got %v", out["suggestedAction"])
	}
	ctx, ok := out["context"].(map[string]any)
	if !ok || ctx["component"] != "VideoPage" {
		t.Errorf("expected camelCase context with component, got %v", out["context"])
	}
}

func TestAsClassified_ThroughWrapping(t *testing.T) {
	ce := New(KindNotFound, "missing")
	wrapped := fmt.Errorf("loading: %w", ce)

	got, ok := AsClassified(wrapped)
	if !ok || got != ce {
		t.Fatal("expected to extract classified error through wrapping")
	}
	if !IsClassified(wrapped) {
		t.Error("IsClassified should be true")
	}
	if IsClassified(fmt.Errorf("plain")) {
		t.Error("IsClassified should be false for plain errors")
	}
}

func TestIsRetryable_And_KindOf(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if !IsRetryable(fmt.Errorf("network is down")) {
		t.Error("network message should be retryable")
	}
	if IsRetryable(New(KindPermission, "nope")) {
		t.Error("permission should not be retryable")
	}
	if KindOf(fmt.Errorf("resource not found")) != KindNotFound {
		t.Error("expected not_found kind")
	}
}

func TestNewValidation_Details(t *testing.T) {
	ce := NewValidation("name: is required", map[string]any{"fields": []string{"name"}})
	if ce.Kind() != KindValidation || ce.Retryable() {
		t.Fatalf("unexpected classification %s retryable=%v", ce.Kind(), ce.Retryable())
	}
	resp := ce.ToResponse()
	if resp.Error.Message != "name: is required" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
	if _, ok := resp.Error.Details["fields"]; !ok {
		t.Error("expected fields in response details")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *ClassifiedError
		want int
	}{
		{"origin status wins", Classify(HTTPError{Status: 401}, Context{}), http.StatusUnauthorized},
		{"network", New(KindNetwork, "x"), http.StatusServiceUnavailable},
		{"validation", New(KindValidation, "x"), http.StatusBadRequest},
		{"client", New(KindClient, "x"), http.StatusInternalServerError},
		{"server without status", New(KindServer, "x"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestToResponse_HidesRawMessage(t *testing.T) {
	ce := Classify(fmt.Errorf("pq: connection refused at 10.0.0.3"), Context{})
	resp := ce.ToResponse()
	if strings.Contains(resp.Error.Message, "10.0.0.3") {
		t.Errorf("raw message leaked into response: %q", resp.Error.Message)
	}
	if resp.Error.ID != ce.ID() {
		t.Error("response should carry the error ID")
	}
}

func TestContext_Merge(t *testing.T) {
	base := Context{Component: "A", Action: "download", AdditionalData: map[string]any{"x": 1}}
	merged := base.Merge(Context{Action: "analysis", RetryCount: 2, AdditionalData: map[string]any{"y": 2}})

	if merged.Component != "A" || merged.Action != "analysis" || merged.RetryCount != 2 {
		t.Errorf("unexpected merge result %+v", merged)
	}
	if merged.AdditionalData["x"] != 1 || merged.AdditionalData["y"] != 2 {
		t.Errorf("expected both data keys, got %v", merged.AdditionalData)
	}
	if _, ok := base.AdditionalData["y"]; ok {
		t.Error("merge must not mutate the receiver")
	}
}

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("bogus").Valid() {
		t.Error("bogus kind should be invalid")
	}
}
