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

// Package storage defines the persistence interfaces used by ingestion.
package storage

import (
	"context"
	"errors"

	"github.com/tracewell/processor/internal/model"
)

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("storage: not found")

// Project is the subset of a project needed for ingestion.
type Project struct {
	// ID is the internal project id referenced by stored records.
	ID       int64
	Platform string
}

// ProjectRepository looks up projects by their public UUID.
type ProjectRepository interface {
	// LookupProject returns ErrNotFound if there is no such project.
	LookupProject(ctx context.Context, projectUUID string) (Project, error)
}

// EventRepository stores processed events.
type EventRepository interface {
	SaveError(ctx context.Context, rec *model.ErrorRecord) error
	SaveRejection(ctx context.Context, rec *model.RejectionRecord) error
}

// Repository combines all persistence interfaces.
type Repository interface {
	ProjectRepository
	EventRepository
}
