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

// Package version reports the build version of the processor.
package version

import (
	"runtime/debug"
	"time"
)

// Version holds the processor version.
const Version = "0.4.0"

var (
	vcsRevision string
	vcsTime     time.Time
	vcsModified bool
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcsRevision = setting.Value
		case "vcs.time":
			vcsTime, _ = time.Parse(time.RFC3339, setting.Value)
		case "vcs.modified":
			vcsModified = setting.Value == "true"
		}
	}
}

// CommitHash returns the full git commit hash of the build, if known.
func CommitHash() string {
	return vcsRevision
}

// CommitTime returns the git commit time of the build, if known.
func CommitTime() time.Time {
	return vcsTime
}

// VCSModified reports whether the build had local modifications.
func VCSModified() bool {
	return vcsModified
}
