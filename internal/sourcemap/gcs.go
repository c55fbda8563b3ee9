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
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSFetcher is a Fetcher reading source maps from a Google Cloud Storage
// bucket.
type GCSFetcher struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSFetcher returns a GCSFetcher for bucket. If credentialsFile is
// empty, application default credentials are used.
func NewGCSFetcher(ctx context.Context, bucket, credentialsFile string) (*GCSFetcher, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket must be set")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSFetcher{client: client, bucket: client.Bucket(bucket)}, nil
}

// Fetch fetches a source map from GCS.
func (f *GCSFetcher) Fetch(ctx context.Context, projectID, mapFileName string) ([]byte, error) {
	key := objectKey(projectID, mapFileName)
	r, err := f.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open GCS object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", key, err)
	}
	return data, nil
}

// Close closes the underlying storage client.
func (f *GCSFetcher) Close() error {
	return f.client.Close()
}
