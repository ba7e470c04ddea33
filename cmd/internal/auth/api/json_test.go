package authapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeInto(t *testing.T, body string, maxBytes int64) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	var dst loginRequest
	return decodeJSON(httptest.NewRecorder(), req, maxBytes, &dst)
}

func TestDecodeJSON(t *testing.T) {
	if err := decodeInto(t, `{"email":"a@b.c","password":"pw"}`, 1<<10); err != nil {
		t.Fatalf("valid body: %v", err)
	}
	if err := decodeInto(t, `{"email":"a@b.c"} trailing`, 1<<10); !errors.Is(err, errBodyTrailing) {
		t.Fatalf("trailing data: got %v", err)
	}
	if err := decodeInto(t, `{"emial":"a@b.c"}`, 1<<10); err == nil {
		t.Fatalf("unknown field must be rejected")
	}
	if err := decodeInto(t, `{"email":"`+strings.Repeat("x", 100)+`"}`, 16); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("oversized body: got %v", err)
	}
}

func TestWriteDecodeError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDecodeError(rr, errBodyTooLarge)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	writeDecodeError(rr, errBodyTrailing)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("trailing data status = %d", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}
