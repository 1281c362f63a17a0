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

package debugfs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/NVIDIA/gpudbg/pkg/defaults"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/serializer"
	"github.com/NVIDIA/gpudbg/pkg/server"
)

// HTTP routes served by the handlers below.
const (
	RouteNodes    = "/v1/nodes"
	RouteNode     = "/v1/nodes/{path...}"
	RouteTunables = "/v1/tunables"
)

// Handlers returns the node routes keyed by ServeMux pattern.
func (fs *FS) Handlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		RouteNodes:    fs.HandleList,
		RouteNode:     fs.HandleNode,
		RouteTunables: fs.HandleTunables,
	}
}

func requestFormat(w http.ResponseWriter, r *http.Request) (serializer.Format, bool) {
	f := serializer.Format(r.URL.Query().Get("format"))
	if f == "" {
		return serializer.FormatJSON, true
	}
	if f.IsUnknown() {
		server.WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
			"Unsupported format", false, map[string]any{
				"format":    string(f),
				"supported": serializer.SupportedFormats(),
			})
		return "", false
	}
	return f, true
}

func allowOnly(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	server.WriteError(w, r, http.StatusMethodNotAllowed, errors.ErrCodeMethodNotAllowed,
		"Method not allowed", false, map[string]any{
			"method":  r.Method,
			"allowed": methods,
		})
	return false
}

// HandleList serves GET /v1/nodes, the sorted node listing.
func (fs *FS) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet) {
		return
	}
	format, ok := requestFormat(w, r)
	if !ok {
		return
	}
	serializer.Respond(w, http.StatusOK, format, fs.List())
}

// HandleTunables serves GET /v1/tunables, a map of tunable name to value.
func (fs *FS) HandleTunables(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet) {
		return
	}
	format, ok := requestFormat(w, r)
	if !ok {
		return
	}
	serializer.Respond(w, http.StatusOK, format, fs.reg.Values())
}

// HandleNode serves one node. GET returns the node contents as text; PUT
// writes the request body to an attribute and replies 204.
func (fs *FS) HandleNode(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	p := r.PathValue("path")

	if r.Method == http.MethodGet {
		out, err := fs.Read(p)
		if err != nil {
			server.WriteErrorFromErr(w, r, err, "Failed to read node", nil)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if _, err := io.WriteString(w, out); err != nil {
			slog.Warn("response write failed", "path", p, "error", err)
		}
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		server.WriteError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
			"Failed to read request body", false, map[string]any{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaults.NodeWriteTimeout)
	defer cancel()

	if err := fs.Write(ctx, p, string(body)); err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to write node", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
