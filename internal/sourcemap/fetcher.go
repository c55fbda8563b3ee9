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
	"path"
)

// MapFileSuffix is appended to a bundle's base name to form the name of its
// source map artifact.
const MapFileSuffix = ".map"

var errFetcherUnvailable = errors.New("fetcher unavailable")

// Fetcher is an interface for fetching source map artifacts uploaded for a
// project.
type Fetcher interface {
	// Fetch fetches the raw source map named mapFileName for projectID.
	//
	// If there is no such source map available, Fetch returns nil data and
	// a nil error. Transport failures are returned as errors; callers are
	// expected to treat them the same as a missing source map.
	Fetch(ctx context.Context, projectID, mapFileName string) ([]byte, error)
}

// MapFileName returns the name of the source map artifact for a bundle
// file, e.g. "bundle.min.js.map" for "/app/dist/bundle.min.js".
func MapFileName(bundleFile string) string {
	return path.Base(bundleFile) + MapFileSuffix
}

// objectKey returns the storage key of an artifact: <projectID>/<mapFileName>.
func objectKey(projectID, mapFileName string) string {
	return projectID + "/" + mapFileName
}
