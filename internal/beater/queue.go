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
package beater

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/config"
	"github.com/tracewell/processor/internal/ingest"
	"github.com/tracewell/processor/internal/logs"
)

const (
	queueRetryInterval      = time.Second
	defaultQueuePollTimeout = time.Second
)

// listClient is the subset of the Redis client used for consuming records.
type listClient interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPopCount(ctx context.Context, key string, count int) *redis.StringSliceCmd
}

// recordProcessor is implemented by ingest.Processor.
type recordProcessor interface {
	ProcessRecords(ctx context.Context, records [][]byte) []ingest.Result
}

// queueConsumer pops `{"data": ...}` records from a Redis list and
// processes them in batches.
type queueConsumer struct {
	client      listClient
	key         string
	batchSize   int
	pollTimeout time.Duration
	processor   recordProcessor
	records     *prometheus.CounterVec
	logger      *logp.Logger
}

func newQueueConsumer(
	cfg config.QueueConfig,
	client listClient,
	processor recordProcessor,
	registry prometheus.Registerer,
) (*queueConsumer, error) {
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracewell",
		Subsystem: "queue",
		Name:      "records_total",
		Help:      "Count of records consumed from the queue by outcome",
	}, []string{"outcome"})
	if err := registry.Register(records); err != nil {
		return nil, err
	}
	// BLPOP with a zero timeout blocks forever, which would stall shutdown.
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultQueuePollTimeout
	}
	return &queueConsumer{
		client:      client,
		key:         cfg.Key,
		batchSize:   cfg.BatchSize,
		pollTimeout: pollTimeout,
		processor:   processor,
		records:     records,
		logger:      logp.NewLogger(logs.Queue),
	}, nil
}

// run consumes records until ctx is cancelled. A batch that has been
// popped is always processed to completion, even during shutdown.
func (q *queueConsumer) run(ctx context.Context) error {
	q.logger.Infof("Consuming records from Redis list %q", q.key)
	defer q.logger.Info("Queue consumer stopped")
	for {
		batch, err := q.next(ctx)
		if ctx.Err() != nil {
			if len(batch) > 0 {
				q.process(context.WithoutCancel(ctx), batch)
			}
			return nil
		}
		if err != nil {
			q.logger.With(logp.Error(err)).Error("Failed to pop records from queue")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(queueRetryInterval):
			}
			continue
		}
		if len(batch) > 0 {
			q.process(context.WithoutCancel(ctx), batch)
		}
	}
}

// next blocks until at least one record is available or the poll timeout
// expires, then pops up to batchSize records.
//
// The pops are not cancelled with ctx: a record removed from the list by
// Redis must reach the caller, so shutdown waits for at most one poll.
func (q *queueConsumer) next(ctx context.Context) ([][]byte, error) {
	ctx = context.WithoutCancel(ctx)
	popped, err := q.client.BLPop(ctx, q.pollTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BLPOP replies with the key followed by the value.
	if len(popped) != 2 {
		return nil, nil
	}
	batch := [][]byte{[]byte(popped[1])}
	if q.batchSize <= 1 {
		return batch, nil
	}

	more, err := q.client.LPopCount(ctx, q.key, q.batchSize-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		q.logger.With(logp.Error(err)).Warn("Failed to pop additional records from queue")
	}
	for _, v := range more {
		batch = append(batch, []byte(v))
	}
	return batch, nil
}

func (q *queueConsumer) process(ctx context.Context, batch [][]byte) {
	var failed int
	for _, result := range q.processor.ProcessRecords(ctx, batch) {
		if result.Err != nil {
			failed++
		}
	}
	q.records.WithLabelValues("processed").Add(float64(len(batch) - failed))
	q.records.WithLabelValues("failed").Add(float64(failed))
	q.logger.Debugf("Processed %d records from queue, %d failed", len(batch), failed)
}
