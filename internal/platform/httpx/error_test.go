package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/feldhof/orders/internal/platform/requestctx"
)

func TestWriteErrorFillsCorrelationIDsFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-7")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "105445aa7843bc8bf206b12000100000"})

	rec := httptest.NewRecorder()
	WriteError(ctx, rec, NewError("not_found", "order missing", http.StatusNotFound))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Status    int    `json:"status"`
		RequestID string `json:"request_id"`
		TraceID   string `json:"trace_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Error != "not_found" || body.Status != http.StatusNotFound {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if body.RequestID != "req-7" {
		t.Fatalf("request id %q, want req-7", body.RequestID)
	}
	if body.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("trace id %q not taken from context", body.TraceID)
	}
}

func TestWriteErrorOmitsEmptyCorrelationIDs(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, NewError("internal_error", "boom", http.StatusInternalServerError))

	payload := rec.Body.String()
	if strings.Contains(payload, "request_id") || strings.Contains(payload, "trace_id") {
		t.Fatalf("expected correlation ids omitted, got %s", payload)
	}
}

func TestNewErrorSanitisesInput(t *testing.T) {
	err := NewError("bad\ncode", "line one\r\nline two\x00", http.StatusBadRequest)
	if strings.ContainsAny(err.Code, "\r\n\x00") {
		t.Fatalf("code not sanitised: %q", err.Code)
	}
	if strings.ContainsAny(err.Message, "\r\n\x00") {
		t.Fatalf("message not sanitised: %q", err.Message)
	}

	long := strings.Repeat("x", 600)
	if got := NewError("code", long, http.StatusBadRequest).Message; len(got) != 512 {
		t.Fatalf("message length = %d, want 512", len(got))
	}
}

func TestWithDetailsNestsUnderDetailsKey(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewError("invalid_request", "bad payload", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"field": "quantity"})
	WriteError(context.Background(), rec, err)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	details, ok := body["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %v", body["details"])
	}
	if details["field"] != "quantity" {
		t.Fatalf("unexpected details %v", details)
	}
}
