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
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/storage"
)

const (
	cleanupInterval time.Duration = 60 * time.Second
)

// projectCache caches successful project lookups. Misses are never cached,
// so that newly created projects are picked up immediately.
type projectCache struct {
	logger  *logp.Logger
	exp     time.Duration
	gocache *gocache.Cache
	backend storage.ProjectRepository
}

func newProjectCache(logger *logp.Logger, backend storage.ProjectRepository, exp time.Duration) *projectCache {
	logger.Infof("Project cache creation with default expiration %v.", exp)
	return &projectCache{
		logger:  logger,
		exp:     exp,
		gocache: gocache.New(exp, cleanupInterval),
		backend: backend,
	}
}

// LookupProject implements storage.ProjectRepository.
func (c *projectCache) LookupProject(ctx context.Context, projectUUID string) (storage.Project, error) {
	if project, found := c.fetch(projectUUID); found {
		return project, nil
	}
	project, err := c.backend.LookupProject(ctx, projectUUID)
	if err != nil {
		return storage.Project{}, err
	}
	c.add(projectUUID, project)
	return project, nil
}

func (c *projectCache) add(id string, project storage.Project) {
	c.gocache.Set(id, project, c.exp)
	c.logger.Debugf("Cache size %v. Added project %v.", c.gocache.ItemCount(), id)
}

func (c *projectCache) fetch(id string) (storage.Project, bool) {
	val, found := c.gocache.Get(id)
	if !found || val == nil {
		return storage.Project{}, false
	}
	return val.(storage.Project), true
}
