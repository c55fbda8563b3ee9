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

// Package notify sends webhook notifications about newly stored issues.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/logs"
)

const (
	webhookPath = "/api/notifications/webhook"

	// DefaultTimeout is used when Config.Timeout is not set.
	DefaultTimeout = 10 * time.Second

	newIssueMessage = "New issue"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the webhook settings.
type Config struct {
	// Endpoint is the base URL of the notification service. Notifications
	// are disabled when it is empty.
	Endpoint string
	Timeout  time.Duration
}

type payload struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}

// Notifier posts a notification for every stored issue. Notifications are
// sent in the background and never block or fail the caller.
type Notifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *logp.Logger
	wg      sync.WaitGroup
}

// New returns a Notifier for cfg.
func New(cfg Config) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	n := &Notifier{
		timeout: timeout,
		client:  &http.Client{},
		logger:  logp.NewLogger(logs.Notify),
	}
	if cfg.Endpoint != "" {
		n.url = strings.TrimSuffix(cfg.Endpoint, "/") + webhookPath
	}
	return n
}

// Notify reports a new issue for the project with the given public UUID.
// It returns immediately; delivery failures are logged. Notify on a nil
// Notifier does nothing.
func (n *Notifier) Notify(projectUUID string) {
	if n == nil {
		return
	}
	if n.url == "" {
		n.logger.Warn("webhook endpoint not configured, skipping notification")
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.send(ctx, projectUUID); err != nil {
			n.logger.Errorf("failed to send notification for project %s: %s", projectUUID, err)
			return
		}
		n.logger.Debugf("notification sent for project %s", projectUUID)
	}()
}

// Wait blocks until all pending notifications have completed.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) send(ctx context.Context, projectUUID string) error {
	body, err := json.Marshal(payload{Message: newIssueMessage, ProjectID: projectUUID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned unexpected status %s", resp.Status)
	}
	return nil
}
