package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseRawEvent decodes a RawEvent's value into a Profile. The value is the
// profile JSON produced by the ingestion service.
func ParseRawEvent(raw RawEvent) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(raw.Value, &p); err != nil {
		return Profile{}, fmt.Errorf("parse raw profile: %w", err)
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	return p, nil
}
