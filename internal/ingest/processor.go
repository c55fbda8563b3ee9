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

// Package ingest turns decoded intake records into stored error and
// rejection records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/fingerprint"
	"github.com/tracewell/processor/internal/logs"
	"github.com/tracewell/processor/internal/model"
	"github.com/tracewell/processor/internal/storage"
)

// DefaultConcurrency is used when Config.Concurrency is not set.
const DefaultConcurrency = 8

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrProjectNotFound is returned for events referencing an unknown project.
// Such events are dropped and must not be retried.
var ErrProjectNotFound = errors.New("project not found")

// Resolver resolves the stack trace of an error event.
type Resolver interface {
	Resolve(ctx context.Context, event model.RawErrorEvent, platform string) model.ResolvedTrace
}

// Notifier is notified after every stored event.
type Notifier interface {
	Notify(projectUUID string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Config holds the Processor settings.
type Config struct {
	// Concurrency limits the number of events of a batch processed
	// concurrently. If Concurrency is <= 0, DefaultConcurrency is used.
	Concurrency int

	// ProjectCacheExpiration enables caching of project lookups when > 0.
	ProjectCacheExpiration time.Duration
}

// Processor resolves, fingerprints and stores events.
type Processor struct {
	projects    storage.ProjectRepository
	events      storage.EventRepository
	resolver    Resolver
	notifier    Notifier
	concurrency int
	logger      *logp.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewProcessor returns a new Processor. If notifier is nil, stored events
// are not notified.
func NewProcessor(cfg Config, repo storage.Repository, resolver Resolver, notifier Notifier) *Processor {
	logger := logp.NewLogger(logs.Ingest)
	if notifier == nil {
		notifier = nopNotifier{}
	}
	var projects storage.ProjectRepository = repo
	if cfg.ProjectCacheExpiration > 0 {
		projects = newProjectCache(logger, repo, cfg.ProjectCacheExpiration)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Processor{
		projects:    projects,
		events:      repo,
		resolver:    resolver,
		notifier:    notifier,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Result holds the outcome of processing a single record of a batch.
type Result struct {
	// ProjectID holds the public project UUID of the record, if it could
	// be decoded.
	ProjectID string
	Err       error
}

// ProcessRecords decodes and processes `{"data": ...}` intake records.
//
// Records are processed concurrently and independently: the failure of one
// record never affects the others. The returned results are in the order
// of records.
func (p *Processor) ProcessRecords(ctx context.Context, records [][]byte) []Result {
	results := make([]Result, len(records))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, body := range records {
		i, body := i, body
		g.Go(func() error {
			results[i] = p.processRecord(ctx, body)
			return nil
		})
	}
	g.Wait()
	return results
}

func (p *Processor) processRecord(ctx context.Context, body []byte) (result Result) {
	defer func() {
		if v := recover(); v != nil {
			result.Err = fmt.Errorf("panic processing record: %v", v)
		}
		if result.Err != nil {
			p.logger.With(logp.Error(result.Err)).Errorf("Failed to process record for project %q", result.ProjectID)
		}
	}()
	event, err := model.DecodeRecord(body, p.now())
	if err != nil {
		return Result{Err: err}
	}
	return Result{ProjectID: event.ProjectID, Err: p.ProcessEvent(ctx, event)}
}

// ProcessEvent processes a single decoded event: the referenced project is
// looked up, the error's stack trace resolved and fingerprinted, and the
// resulting record stored. A notification is sent once the record has been
// stored.
func (p *Processor) ProcessEvent(ctx context.Context, event *model.Event) error {
	project, err := p.projects.LookupProject(ctx, event.ProjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, event.ProjectID)
		}
		return fmt.Errorf("failed to look up project %s: %w", event.ProjectID, err)
	}
	recordID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("failed to generate record id: %w", err)
	}

	if event.IsRejection() {
		err = p.events.SaveRejection(ctx, p.rejectionRecord(recordID, project, event))
		if err != nil {
			return fmt.Errorf("failed to save rejection: %w", err)
		}
	} else {
		rec, err := p.errorRecord(ctx, recordID, project, event)
		if err != nil {
			return err
		}
		if err := p.events.SaveError(ctx, rec); err != nil {
			return fmt.Errorf("failed to save error: %w", err)
		}
	}

	p.notifier.Notify(event.ProjectID)
	return nil
}

func (p *Processor) errorRecord(ctx context.Context, id uuid.UUID, project storage.Project, event *model.Event) (*model.ErrorRecord, error) {
	trace := p.resolver.Resolve(ctx, event.ErrorEvent(), project.Platform)

	var contexts []byte
	if trace.NormalizedContexts != nil {
		var err error
		if contexts, err = json.Marshal(trace.NormalizedContexts); err != nil {
			return nil, fmt.Errorf("failed to encode code contexts: %w", err)
		}
	}
	return &model.ErrorRecord{
		UUID:       id.String(),
		Name:       event.Error.NameOrDefault(),
		Message:    event.Error.MessageOrDefault(),
		Timestamp:  event.Timestamp,
		FileName:   trace.FileName,
		LineNumber: trace.LineNumber,
		ColNumber:  trace.ColNumber,
		ProjectID:  project.ID,
		StackText:  model.StackOrDefault(trace.NormalizedStackText),
		Handled:    event.Handled,
		Contexts:   contexts,
		Method:     event.Method,
		Path:       event.Path,
		IPHash:     fingerprint.AddressHash(event.IP),
		OS:         event.OS,
		Browser:    event.Browser,
		Runtime:    event.Runtime,
		ErrorHash:  fingerprint.Fingerprint(trace.FileName, trace.LineNumber, trace.ColNumber, event.Error.FingerprintName()),
	}, nil
}

func (p *Processor) rejectionRecord(id uuid.UUID, project storage.Project, event *model.Event) *model.RejectionRecord {
	return &model.RejectionRecord{
		UUID:      id.String(),
		Value:     event.Value,
		Timestamp: event.Timestamp,
		ProjectID: project.ID,
		Handled:   event.Handled,
		Method:    event.Method,
		Path:      event.Path,
		IPHash:    fingerprint.AddressHash(event.IP),
		OS:        event.OS,
		Browser:   event.Browser,
		Runtime:   event.Runtime,
	}
}
