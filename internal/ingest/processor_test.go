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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracewell/processor/internal/fingerprint"
	"github.com/tracewell/processor/internal/model"
	"github.com/tracewell/processor/internal/notify"
	"github.com/tracewell/processor/internal/resolver"
	"github.com/tracewell/processor/internal/sourcemap/sourcemaptest"
	"github.com/tracewell/processor/internal/storage"
)

const projectUUID = "3f1c2f0e-4b8e-4a55-9c7e-1d1f9c7b2a10"

type fakeRepository struct {
	mu         sync.Mutex
	projects   map[string]storage.Project
	lookups    int
	saveErr    error
	errors     []*model.ErrorRecord
	rejections []*model.RejectionRecord
}

func newFakeRepository(platform string) *fakeRepository {
	return &fakeRepository{projects: map[string]storage.Project{
		projectUUID: {ID: 7, Platform: platform},
	}}
}

func (r *fakeRepository) LookupProject(_ context.Context, id string) (storage.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	p, ok := r.projects[id]
	if !ok {
		return storage.Project{}, storage.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepository) SaveError(_ context.Context, rec *model.ErrorRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.errors = append(r.errors, rec)
	return nil
}

func (r *fakeRepository) SaveRejection(_ context.Context, rec *model.RejectionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.rejections = append(r.rejections, rec)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	projects []string
}

func (n *fakeNotifier) Notify(projectUUID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.projects = append(n.projects, projectUUID)
}

type fetcherFunc func(ctx context.Context, projectID, mapFileName string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, projectID, mapFileName string) ([]byte, error) {
	return f(ctx, projectID, mapFileName)
}

func newTestProcessor(repo *fakeRepository, r Resolver, notifier Notifier) *Processor {
	p := NewProcessor(Config{Concurrency: 2}, repo, r, notifier)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func ptr[T any](v T) *T { return &v }

func TestProcessErrorEvent(t *testing.T) {
	repo := newFakeRepository("Express.js")
	notifier := &fakeNotifier{}
	p := newTestProcessor(repo, &resolver.Resolver{}, notifier)

	ts := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	event := &model.Event{
		Error: &model.ErrorDetail{
			Name:    ptr("TypeError"),
			Message: ptr("x is undefined"),
			Stack:   ptr("TypeError: x is undefined\n    at handler (/srv/app/routes/index.js:12:5)"),
		},
		CodeContexts: []model.CodeContext{{File: "index.js", Line: 12, Column: 5, Snippet: "const y = x.z"}},
		Handled:      true,
		Timestamp:    ts,
		ProjectID:    projectUUID,
		Method:       ptr("GET"),
		Path:         ptr("/users"),
		IP:           ptr("10.0.0.1"),
	}
	require.NoError(t, p.ProcessEvent(context.Background(), event))

	require.Len(t, repo.errors, 1)
	rec := repo.errors[0]
	assert.Len(t, rec.UUID, 36)
	assert.Equal(t, "TypeError", rec.Name)
	assert.Equal(t, "x is undefined", rec.Message)
	assert.Equal(t, ts, rec.Timestamp)
	assert.Equal(t, "index.js", *rec.FileName)
	assert.Equal(t, 12, *rec.LineNumber)
	assert.Equal(t, 5, *rec.ColNumber)
	assert.Equal(t, int64(7), rec.ProjectID)
	assert.Equal(t, *event.Error.Stack, rec.StackText)
	assert.True(t, rec.Handled)
	assert.JSONEq(t, `[{"file":"index.js","line":12,"column":5,"context":"const y = x.z"}]`, string(rec.Contexts))
	assert.Equal(t, "GET", *rec.Method)
	assert.Equal(t, fingerprint.AddressHash(ptr("10.0.0.1")), rec.IPHash)
	assert.Equal(t, fingerprint.Fingerprint(ptr("index.js"), ptr(12), ptr(5), ptr("TypeError")), rec.ErrorHash)
	assert.Equal(t, []string{projectUUID}, notifier.projects)
}

func TestProcessErrorEventDefaults(t *testing.T) {
	repo := newFakeRepository("")
	p := newTestProcessor(repo, &resolver.Resolver{}, nil)
	require.NoError(t, p.ProcessEvent(context.Background(), &model.Event{
		Error:     &model.ErrorDetail{},
		ProjectID: projectUUID,
	}))

	require.Len(t, repo.errors, 1)
	rec := repo.errors[0]
	assert.Equal(t, "UnknownError", rec.Name)
	assert.Equal(t, "No message provided", rec.Message)
	assert.Equal(t, "No stack trace available", rec.StackText)
	assert.Nil(t, rec.Contexts)
	assert.Nil(t, rec.FileName)
	assert.Equal(t, fingerprint.AddressHash(nil), rec.IPHash)
	assert.Equal(t, fingerprint.Fingerprint(nil, nil, nil, nil), rec.ErrorHash)
}

func TestProcessErrorEventNullName(t *testing.T) {
	repo := newFakeRepository("")
	p := newTestProcessor(repo, &resolver.Resolver{}, nil)
	require.NoError(t, p.ProcessEvent(context.Background(), &model.Event{
		Error:     &model.ErrorDetail{NameNull: true},
		ProjectID: projectUUID,
	}))

	require.Len(t, repo.errors, 1)
	rec := repo.errors[0]
	assert.Equal(t, "UnknownError", rec.Name)
	assert.Equal(t, fingerprint.Fingerprint(nil, nil, nil, ptr("null")), rec.ErrorHash)
	assert.NotEqual(t, fingerprint.Fingerprint(nil, nil, nil, nil), rec.ErrorHash)
}

func TestProcessEventNilNotifier(t *testing.T) {
	var disabled *notify.Notifier
	for name, notifier := range map[string]Notifier{
		"untyped_nil": nil,
		"nil_notifier": disabled,
	} {
		t.Run(name, func(t *testing.T) {
			repo := newFakeRepository("Express.js")
			p := NewProcessor(Config{}, repo, &resolver.Resolver{}, notifier)
			require.NoError(t, p.ProcessEvent(context.Background(), &model.Event{
				Error:     &model.ErrorDetail{Name: ptr("TypeError")},
				ProjectID: projectUUID,
			}))
			assert.Len(t, repo.errors, 1)
		})
	}
}

func TestProcessMinifiedErrorEvent(t *testing.T) {
	sourcemapData := sourcemaptest.Build("bundle.min.js", []sourcemaptest.Mapping{
		{GenLine: 1, GenColumn: 234, Source: "src/app.ts", Line: 42, Column: 7, Name: "handleClick"},
	}, nil)
	repo := newFakeRepository("React")
	r := &resolver.Resolver{Fetcher: fetcherFunc(func(_ context.Context, projectID, mapFileName string) ([]byte, error) {
		assert.Equal(t, projectUUID, projectID)
		assert.Equal(t, "bundle.min.js.map", mapFileName)
		return sourcemapData, nil
	})}
	p := newTestProcessor(repo, r, nil)

	require.NoError(t, p.ProcessEvent(context.Background(), &model.Event{
		Error: &model.ErrorDetail{
			Name:  ptr("TypeError"),
			Stack: ptr("Error: x\n at f (/app/dist/bundle.min.js:1:234)"),
		},
		ProjectID: projectUUID,
	}))

	require.Len(t, repo.errors, 1)
	rec := repo.errors[0]
	assert.Equal(t, "src/app.ts", *rec.FileName)
	assert.Equal(t, 42, *rec.LineNumber)
	assert.Equal(t, 7, *rec.ColNumber)
	assert.Equal(t, "Error: x\n at handleClick (src/app.ts:42:7)", rec.StackText)
	assert.Equal(t, "[]", string(rec.Contexts))
	assert.Equal(t, fingerprint.Fingerprint(ptr("src/app.ts"), ptr(42), ptr(7), ptr("TypeError")), rec.ErrorHash)
}

func TestProcessRejectionEvent(t *testing.T) {
	repo := newFakeRepository("Express.js")
	notifier := &fakeNotifier{}
	p := newTestProcessor(repo, &resolver.Resolver{}, notifier)

	require.NoError(t, p.ProcessEvent(context.Background(), &model.Event{
		Value:     []byte(`{"reason":"timeout"}`),
		ProjectID: projectUUID,
		IP:        ptr("10.0.0.1"),
	}))

	assert.Empty(t, repo.errors)
	require.Len(t, repo.rejections, 1)
	rec := repo.rejections[0]
	assert.Equal(t, `{"reason":"timeout"}`, string(rec.Value))
	assert.Equal(t, int64(7), rec.ProjectID)
	assert.Equal(t, fingerprint.AddressHash(ptr("10.0.0.1")), rec.IPHash)
	assert.Equal(t, []string{projectUUID}, notifier.projects)
}

func TestProcessEventFailures(t *testing.T) {
	errDB := errors.New("connection refused")
	for name, tc := range map[string]struct {
		projectID string
		saveErr   error
		expectErr error
	}{
		"unknown_project": {projectID: "unknown", expectErr: ErrProjectNotFound},
		"save_failure":    {projectID: projectUUID, saveErr: errDB, expectErr: errDB},
	} {
		t.Run(name, func(t *testing.T) {
			repo := newFakeRepository("")
			repo.saveErr = tc.saveErr
			notifier := &fakeNotifier{}
			p := newTestProcessor(repo, &resolver.Resolver{}, notifier)

			for _, event := range []*model.Event{
				{Error: &model.ErrorDetail{}, ProjectID: tc.projectID},
				{Value: []byte("null"), ProjectID: tc.projectID},
			} {
				err := p.ProcessEvent(context.Background(), event)
				assert.ErrorIs(t, err, tc.expectErr)
			}
			assert.Empty(t, repo.errors)
			assert.Empty(t, repo.rejections)
			assert.Empty(t, notifier.projects)
		})
	}
}

func TestProcessRecords(t *testing.T) {
	repo := newFakeRepository("Flask")
	p := newTestProcessor(repo, &resolver.Resolver{}, nil)

	records := [][]byte{
		[]byte(fmt.Sprintf(`{"data":{"error":{"name":"ValueError"},"project_id":%q,"handled":false}}`, projectUUID)),
		[]byte(`{"data":`),
		[]byte(`{"data":{"value":"boom","project_id":"unknown"}}`),
		[]byte(fmt.Sprintf(`{"data":{"value":"boom","project_id":%q,"timestamp":"not a timestamp"}}`, projectUUID)),
	}
	results := p.ProcessRecords(context.Background(), records)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, projectUUID, results[0].ProjectID)
	assert.ErrorIs(t, results[1].Err, model.ErrMalformedPayload)
	assert.ErrorIs(t, results[2].Err, ErrProjectNotFound)
	assert.Equal(t, "unknown", results[2].ProjectID)
	assert.NoError(t, results[3].Err)

	require.Len(t, repo.errors, 1)
	assert.Equal(t, "ValueError", repo.errors[0].Name)
	require.Len(t, repo.rejections, 1)
	assert.Equal(t, `"boom"`, string(repo.rejections[0].Value))
	assert.Equal(t, p.now(), repo.rejections[0].Timestamp)
}

func TestProcessRecordsConcurrently(t *testing.T) {
	repo := newFakeRepository("")
	p := newTestProcessor(repo, &resolver.Resolver{}, nil)

	records := make([][]byte, 50)
	for i := range records {
		records[i] = []byte(fmt.Sprintf(`{"data":{"error":{"message":%q},"project_id":%q}}`, strings.Repeat("x", i), projectUUID))
	}
	results := p.ProcessRecords(context.Background(), records)
	for _, result := range results {
		assert.NoError(t, result.Err)
	}
	assert.Len(t, repo.errors, 50)
}

func TestProjectCache(t *testing.T) {
	repo := newFakeRepository("Express.js")
	p := NewProcessor(Config{ProjectCacheExpiration: time.Minute}, repo, &resolver.Resolver{}, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.ProcessEvent(context.Background(), &model.Event{Value: []byte("null"), ProjectID: projectUUID}))
		assert.ErrorIs(t, p.ProcessEvent(context.Background(), &model.Event{Value: []byte("null"), ProjectID: "unknown"}), ErrProjectNotFound)
	}
	// one lookup for the cached project, three for the unknown one
	assert.Equal(t, 4, repo.lookups)
}
