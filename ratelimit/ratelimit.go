// Package ratelimit defines the sliding-window limiter applied to
// protected endpoints, keyed by authenticated subject and route bucket.
package ratelimit

import (
	"context"
	"time"
)

// Route buckets used by the HTTP adapter.
const (
	BucketProcessNumber  = "process_number"
	BucketProcessDetails = "process_details"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter decides whether one more request in bucket for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// DefaultLimits is the per-bucket policy applied when none is configured.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		BucketProcessNumber:  {Limit: 120, Window: time.Minute},
		BucketProcessDetails: {Limit: 30, Window: time.Minute},
		"default":            {Limit: 100, Window: time.Minute},
	}
}
