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

package serializer

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "ok" {
		t.Errorf("body = %q, err = %v", rec.Body.String(), err)
	}
}

func TestRespondJSON_EncodingError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, math.Inf(1))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRespond(t *testing.T) {
	tests := []struct {
		format Format
		ct     string
	}{
		{FormatJSON, "application/json"},
		{FormatYAML, "application/yaml"},
		{FormatCBOR, "application/cbor"},
		{FormatTable, "text/plain; charset=utf-8"},
		{Format("bogus"), "application/json"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			rec := httptest.NewRecorder()
			Respond(rec, http.StatusOK, tt.format, map[string]uint64{"lm_limit": 6000})
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.ct {
				t.Errorf("content type = %q, want %q", ct, tt.ct)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}
}

func TestNewHttpReader(t *testing.T) {
	r := NewHttpReader()
	if r.UserAgent != HttpReaderUserAgent || r.Client == nil {
		t.Errorf("unexpected defaults: %+v", r)
	}

	r = NewHttpReader(WithUserAgent("ua"), WithTotalTimeout(time.Second), WithInsecureSkipVerify(true))
	if r.UserAgent != "ua" || r.Client.Timeout != time.Second {
		t.Errorf("options not applied: %+v", r)
	}
	tr, ok := r.Client.Transport.(*http.Transport)
	if !ok || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("insecure skip verify not applied")
	}

	custom := &http.Client{}
	if r := NewHttpReader(WithClient(custom)); r.Client != custom {
		t.Error("custom client not used")
	}
}

func TestHttpReader_Read(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.URL.Path == "/fail" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	r := NewHttpReader()
	data, err := r.Read(srv.URL)
	if err != nil || string(data) != "hello" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if ua != HttpReaderUserAgent {
		t.Errorf("user agent = %q", ua)
	}

	if _, err := r.Read(srv.URL + "/fail"); err == nil {
		t.Error("expected error for 500")
	}
	if _, err := r.Read(""); err == nil {
		t.Error("expected error for empty url")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.ReadWithContext(ctx, srv.URL); err == nil {
		t.Error("expected error for canceled context")
	}

	path := filepath.Join(t.TempDir(), "out")
	if err := r.Download(srv.URL, path); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if b, _ := os.ReadFile(path); string(b) != "hello" {
		t.Errorf("downloaded %q", b)
	}
}
