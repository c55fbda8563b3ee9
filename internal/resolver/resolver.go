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

// Package resolver normalizes client-reported stack traces, applying
// source maps to traces that reference minified bundles.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/logs"
	"github.com/tracewell/processor/internal/model"
	"github.com/tracewell/processor/internal/sourcemap"
	"github.com/tracewell/processor/internal/stacktrace"
)

// DefaultFetchTimeout is used when Resolver.FetchTimeout is not set.
const DefaultFetchTimeout = 5 * time.Second

// Resolver resolves raw error events into normalized traces. Resolve never
// fails: any error fetching or applying a source map, including the fetch
// timeout expiring, results in the event's own stack and code contexts being
// kept.
type Resolver struct {
	// Fetcher is the Fetcher to use for fetching source maps. If Fetcher
	// is nil, minified traces are never mapped.
	Fetcher sourcemap.Fetcher

	// Markers holds the file name infixes marking a stack trace as
	// minified. If empty, model.DefaultMinifiedMarker is used.
	Markers []string

	// FetchTimeout limits the time spent fetching a single source map.
	//
	// If FetchTimeout is <= 0, DefaultFetchTimeout is used.
	FetchTimeout time.Duration
}

// Resolve resolves the stack trace of event for a project of the given
// platform.
//
// For traces that are not minified, the returned trace's stack text and
// contexts are event.StackText and event.CodeContexts themselves.
func (r *Resolver) Resolve(ctx context.Context, event model.RawErrorEvent, platform string) (result model.ResolvedTrace) {
	fallback := passThrough(event, stacktrace.Extract(event.StackText, platform))
	defer func() {
		if v := recover(); v != nil {
			getLogger().Errorf("panic resolving stack trace for project %s: %v", event.ProjectID, v)
			result = fallback
		}
	}()
	if !event.IsMinified(r.Markers...) {
		return fallback
	}
	return r.resolveMinified(ctx, event, fallback)
}

func (r *Resolver) resolveMinified(ctx context.Context, event model.RawErrorEvent, fallback model.ResolvedTrace) model.ResolvedTrace {
	frame := fallback.Frame()
	if frame.File == nil || r.Fetcher == nil {
		return fallback
	}

	mapFileName := sourcemap.MapFileName(*frame.File)
	data, err := r.fetch(ctx, event.ProjectID, mapFileName)
	if err != nil {
		getLogger().Warnf("failed to fetch source map %s for project %s: %s", mapFileName, event.ProjectID, err)
		return fallback
	}
	if data == nil {
		getLogger().Debugf("no source map %s found for project %s", mapFileName, event.ProjectID)
		return fallback
	}

	artifact, err := sourcemap.Decode(data)
	if err != nil {
		getLogger().Warnf("failed to decode source map %s (%s) for project %s: %s",
			mapFileName, humanize.Bytes(uint64(len(data))), event.ProjectID, err)
		return fallback
	}
	defer artifact.Close()

	stack := artifact.RemapStack(*event.StackText)
	result := model.ResolvedTrace{
		NormalizedStackText: &stack,
		NormalizedContexts:  artifact.ResolveContexts(*event.StackText),
	}
	if frame.Line != nil {
		// Dialects without columns resolve against the start of the line.
		var column int
		if frame.Column != nil {
			column = *frame.Column
		}
		pos := artifact.ResolvePosition(*frame.Line, column)
		result.FileName = pos.File
		result.LineNumber = pos.Line
		result.ColNumber = pos.Column
	}
	return result
}

func (r *Resolver) fetch(ctx context.Context, projectID, mapFileName string) ([]byte, error) {
	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := r.Fetcher.Fetch(ctx, projectID, mapFileName)
	if err == nil && ctx.Err() != nil {
		// A fetcher that ignores cancellation may still return data
		// after the deadline.
		return nil, fmt.Errorf("fetching %s: %w", mapFileName, ctx.Err())
	}
	return data, err
}

func passThrough(event model.RawErrorEvent, frame model.StackFrame) model.ResolvedTrace {
	return model.ResolvedTrace{
		FileName:            frame.File,
		LineNumber:          frame.Line,
		ColNumber:           frame.Column,
		NormalizedStackText: event.StackText,
		NormalizedContexts:  event.CodeContexts,
	}
}

func getLogger() *logp.Logger {
	loggerOnce.Do(func() {
		// We obtain the logger lazily, so it picks up the configuration
		// applied at start-up rather than at package init.
		logger = logp.NewLogger(logs.Sourcemap, logs.WithRateLimit(time.Minute))
	})
	return logger
}

var (
	loggerOnce sync.Once
	logger     *logp.Logger
)
