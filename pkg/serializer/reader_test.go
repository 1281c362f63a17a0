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
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"profile.json", FormatJSON},
		{"profile.YAML", FormatYAML},
		{"profile.yml", FormatYAML},
		{"dump.cbor", FormatCBOR},
		{"out.txt", FormatTable},
		{"out.table", FormatTable},
		{"noext", FormatJSON},
		{"https://example.com/p.yaml", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFromPath(tt.path); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewReader_Errors(t *testing.T) {
	if _, err := NewReader(Format("xml"), strings.NewReader("")); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewReader(FormatTable, strings.NewReader("")); err == nil {
		t.Error("expected error for table format")
	}
	if _, err := NewFileReader(FormatTable, "x.txt"); err == nil {
		t.Error("expected error for table file")
	}
	if _, err := NewFileReader(FormatJSON, "/nonexistent/x.json"); err == nil {
		t.Error("expected error for missing file")
	}

	var r *Reader
	if err := r.Deserialize(&testConfig{}); err == nil {
		t.Error("expected error for nil reader")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil reader: %v", err)
	}
	if err := (&Reader{format: FormatJSON}).Deserialize(&testConfig{}); err == nil {
		t.Error("expected error for nil input")
	}
}

func TestReader_Deserialize(t *testing.T) {
	want := testData()[0]
	for _, f := range []Format{FormatJSON, FormatYAML, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Marshal(f, want)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			r, err := NewReader(f, bytes.NewReader(data))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			var got testConfig
			if err := r.Deserialize(&got); err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}

	r, _ := NewReader(FormatJSON, strings.NewReader("{not json"))
	if err := r.Deserialize(&testConfig{}); err == nil {
		t.Error("expected decode error")
	}
}

type interval time.Duration

func (d interval) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *interval) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = interval(v)
	return nil
}

func TestTextValuesKeepTheirForm(t *testing.T) {
	type pipeline struct {
		Interval interval `json:"interval" yaml:"interval" cbor:"interval"`
	}
	want := pipeline{Interval: interval(50 * time.Millisecond)}

	for _, f := range []Format{FormatJSON, FormatYAML, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Marshal(f, want)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			// the value is written as text, not as nanoseconds
			r, err := NewReader(f, bytes.NewReader(data))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			var raw map[string]any
			if err := r.Deserialize(&raw); err != nil {
				t.Fatalf("Deserialize raw failed: %v", err)
			}
			if raw["interval"] != "50ms" {
				t.Errorf("interval encoded as %#v, want \"50ms\"", raw["interval"])
			}

			r, err = NewReader(f, bytes.NewReader(data))
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			var got pipeline
			if err := r.Deserialize(&got); err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if got != want {
				t.Errorf("got %v, want %v", time.Duration(got.Interval), time.Duration(want.Interval))
			}
		})
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("name: local\nvalue: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := FromFile[testConfig](path)
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}
	if got.Name != "local" || got.Value != 7 {
		t.Errorf("unexpected: %+v", got)
	}

	if _, err := FromFile[testConfig](filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile[testConfig](bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestFromFile_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cfg.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"name":"remote","value":9}`)
	}))
	defer srv.Close()

	got, err := FromFile[testConfig](srv.URL + "/cfg.json")
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}
	if got.Name != "remote" || got.Value != 9 {
		t.Errorf("unexpected: %+v", got)
	}

	if _, err := FromFile[testConfig](srv.URL + "/missing.json"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestNewFileReader_RemovesDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "name: x\n")
	}))
	defer srv.Close()

	r, err := NewFileReader(FormatYAML, srv.URL+"/p.yaml")
	if err != nil {
		t.Fatalf("NewFileReader failed: %v", err)
	}
	temp := r.temp
	if _, err := os.Stat(temp); err != nil {
		t.Fatalf("download missing: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Errorf("temp file not removed: %v", err)
	}
}
