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

// Package postgres persists projects, error records and rejection records
// in PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tracewell/processor/internal/model"
	"github.com/tracewell/processor/internal/storage"
)

// invalidTextRepresentation is returned by PostgreSQL for malformed UUIDs.
const invalidTextRepresentation = "22P02"

// querier is the subset of *pgxpool.Pool used by Repository.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements persistence on PostgreSQL.
type Repository struct {
	db querier
}

// ensure Repository satisfies interfaces.
var _ storage.Repository = (*Repository)(nil)

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// LookupProject fetches the internal id and platform of the project with
// the given public UUID.
func (r *Repository) LookupProject(ctx context.Context, projectUUID string) (storage.Project, error) {
	const query = `SELECT id, platform FROM projects WHERE uuid = $1`
	row := r.db.QueryRow(ctx, query, projectUUID)
	var p storage.Project
	if err := row.Scan(&p.ID, &p.Platform); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Project{}, storage.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
			return storage.Project{}, storage.ErrNotFound
		}
		return storage.Project{}, err
	}
	return p, nil
}

// SaveError inserts an error record.
func (r *Repository) SaveError(ctx context.Context, rec *model.ErrorRecord) error {
	const query = `INSERT INTO error_logs (uuid, name, message, created_at, filename, line_number, col_number,
		project_id, stack_trace, handled, contexts, method, path, ip, os, browser, runtime, error_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.Exec(ctx, query,
		rec.UUID, rec.Name, rec.Message, rec.Timestamp, rec.FileName, rec.LineNumber, rec.ColNumber,
		rec.ProjectID, rec.StackText, rec.Handled, jsonb(rec.Contexts), rec.Method, rec.Path, rec.IPHash,
		rec.OS, rec.Browser, rec.Runtime, rec.ErrorHash,
	)
	return err
}

// SaveRejection inserts a rejection record.
func (r *Repository) SaveRejection(ctx context.Context, rec *model.RejectionRecord) error {
	const query = `INSERT INTO rejection_logs (uuid, value, created_at, project_id, handled, method, path,
		ip, os, browser, runtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		rec.UUID, jsonb(rec.Value), rec.Timestamp, rec.ProjectID, rec.Handled, rec.Method, rec.Path,
		rec.IPHash, rec.OS, rec.Browser, rec.Runtime,
	)
	return err
}

// jsonb returns raw JSON as a parameter for a JSONB column; empty input is
// stored as NULL.
func jsonb(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
