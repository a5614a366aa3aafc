package domain

import (
	"context"
	"time"
)

// JobMessage is an unprocessed bulk geocoding job from the source topic.
type JobMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// BulkJob is the JSON body of a JobMessage. Credentials are never read from
// the message; the worker uses its own.
type BulkJob struct {
	Addresses  []AddressInput `json:"addresses"`
	Boundary   *Boundary      `json:"boundary,omitempty"`
	FocusPoint *Point         `json:"focusPoint,omitempty"`
}

// Request builds the bulk request for the job with creds.
func (j BulkJob) Request(creds Credentials) BulkRequest {
	return BulkRequest{
		Credentials: creds,
		Addresses:   j.Addresses,
		Boundary:    j.Boundary,
		FocusPoint:  j.FocusPoint,
	}
}

// JobResult is a geocoded bulk job destined for the sink topic.
type JobResult struct {
	JobID       string
	Collection  FeatureCollection[AddressQuery]
	ProcessedAt time.Time
}
