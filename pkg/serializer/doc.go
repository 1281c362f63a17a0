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


// Package serializer encodes and decodes gpudbg documents.
//
// Four formats are supported:
//   - JSON: indented, for APIs and scripts
//   - YAML: for profiles kept under version control
//   - CBOR: deterministic core encoding, for compact dumps
//   - Table: a flattened FIELD/VALUE listing for terminals (write-only)
//
// Encoding:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	defer w.Close()
//	if err := w.Serialize(ctx, data); err != nil {
//		return err
//	}
//
// Decoding a file or http(s) URL, with the format taken from the extension:
//
//	profile, err := serializer.FromFile[config.Profile]("profile.yaml")
//
// For HTTP handlers, Respond and RespondJSON encode the body before writing
// headers so an encoding failure never yields a partial response.
package serializer
