// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func testServer(limit rate.Limit, burst int) *Server {
	return &Server{
		config:      NewConfig(),
		rateLimiter: rate.NewLimiter(limit, burst),
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	valid := uuid.New().String()
	tests := []struct {
		name     string
		header   string
		keepSame bool
	}{
		{"generates new id", "", false},
		{"uses provided id", valid, true},
		{"replaces invalid id", "invalid-not-a-uuid", false},
	}

	s := testServer(100, 200)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
				captured = RequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/nodes", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if _, err := uuid.Parse(captured); err != nil {
				t.Errorf("expected valid UUID, got %q", captured)
			}
			if tt.keepSame != (captured == tt.header) {
				t.Errorf("request id %q, header %q", captured, tt.header)
			}
			if rec.Header().Get("X-Request-Id") != captured {
				t.Errorf("response header %q != %q", rec.Header().Get("X-Request-Id"), captured)
			}
		})
	}
}

func TestVersionMiddleware(t *testing.T) {
	s := testServer(100, 200)

	var captured string
	handler := s.versionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = r.Context().Value(contextKeyAPIVersion).(string)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/v1/nodes", nil))

	if captured != DefaultAPIVersion || rec.Header().Get("X-API-Version") != DefaultAPIVersion {
		t.Errorf("version %q, header %q", captured, rec.Header().Get("X-API-Version"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows and sets headers", func(t *testing.T) {
		s := testServer(100, 200)
		called := false
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/v1/nodes", nil))

		if !called || rec.Code != http.StatusOK {
			t.Errorf("called=%v status=%d", called, rec.Code)
		}
		for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
			if rec.Header().Get(h) == "" {
				t.Errorf("expected %s header", h)
			}
		}
	})

	t.Run("rejects when exceeded", func(t *testing.T) {
		s := testServer(0, 0)
		called := false
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/v1/nodes", nil))

		if called {
			t.Error("handler should not be called when rate limited")
		}
		if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
			t.Errorf("status=%d retry-after=%q", rec.Code, rec.Header().Get("Retry-After"))
		}
	})
}

func TestBodyLimitMiddleware(t *testing.T) {
	s := testServer(100, 200)
	s.config.MaxBodyBytes = 8

	var readErr error
	handler := s.bodyLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/v1/nodes/lm_limit", strings.NewReader("6000\n")))
	if readErr != nil {
		t.Errorf("small body rejected: %v", readErr)
	}

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/v1/nodes/lm_limit", strings.NewReader(strings.Repeat("9", 64))))
	if readErr == nil {
		t.Error("expected oversized body to fail")
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	s := testServer(100, 200)

	rec := httptest.NewRecorder()
	s.panicRecoveryMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("test panic")
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.panicRecoveryMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}

func TestLoggingMiddleware_TracksStatusCode(t *testing.T) {
	s := testServer(100, 200)

	for _, status := range []int{http.StatusOK, http.StatusNoContent, http.StatusBadRequest, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			handler := s.requestIDMiddleware(s.loggingMiddleware(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			if rec.Code != status {
				t.Errorf("expected status %d, got %d", status, rec.Code)
			}
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	s := testServer(100, 200)

	var hasRequestID, hasAPIVersion bool
	handler := s.withMiddleware(func(w http.ResponseWriter, r *http.Request) {
		hasRequestID = RequestID(r.Context()) != ""
		hasAPIVersion = r.Context().Value(contextKeyAPIVersion) != nil
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if !hasRequestID || !hasAPIVersion {
		t.Errorf("context: requestID=%v apiVersion=%v", hasRequestID, hasAPIVersion)
	}
	for _, header := range []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-API-Version"} {
		if rec.Header().Get(header) == "" {
			t.Errorf("expected header %s to be set", header)
		}
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusTeapot)
	_, _ = rw.Write([]byte("abc"))

	if rw.Status() != http.StatusAccepted || rec.Code != http.StatusAccepted {
		t.Errorf("status %d / %d", rw.Status(), rec.Code)
	}
	if rw.Bytes() != 3 {
		t.Errorf("bytes = %d", rw.Bytes())
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap did not return the wrapped writer")
	}
}
