// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package sourcemap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type directoryFetcher struct {
	root string
}

// NewDirectoryFetcher returns a Fetcher reading source maps from
// <root>/<projectID>/<mapFileName> on the local file system.
func NewDirectoryFetcher(root string) Fetcher {
	return directoryFetcher{root: root}
}

// Fetch reads a source map from disk.
func (f directoryFetcher) Fetch(ctx context.Context, projectID, mapFileName string) ([]byte, error) {
	if !isPlainName(projectID) || !isPlainName(mapFileName) {
		return nil, fmt.Errorf("invalid source map location %q", objectKey(projectID, mapFileName))
	}
	data, err := os.ReadFile(filepath.Join(f.root, projectID, mapFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// isPlainName reports whether name is a single, non-special path element.
func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}
