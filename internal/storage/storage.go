// Package storage provides the persistent string-keyed store that cards and
// settings are mirrored to. Values are JSON (or plain) strings; every call is
// synchronous and completes before it returns.
package storage

import (
	"context"
	"fmt"
	"math"
)

// ApproximateLimitBytes is the budget Info reports usage against.
const ApproximateLimitBytes = 5 * 1024 * 1024

// Store is a persistent key-value store over string keys and string values.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// UsageInfo summarises how much of the store a key prefix occupies.
type UsageInfo struct {
	ItemCount        int     `json:"item_count"`
	SizeBytes        int     `json:"size_bytes"`
	SizeKB           float64 `json:"size_kb"`
	ApproximateLimit string  `json:"approximate_limit"`
	PercentUsed      float64 `json:"percent_used"`
}

// Info measures keys under prefix. Sizes count key and value characters.
func Info(ctx context.Context, s Store, prefix string) (*UsageInfo, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, k := range keys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		total += len(k)
		if ok {
			total += len(v)
		}
	}

	return &UsageInfo{
		ItemCount:        len(keys),
		SizeBytes:        total,
		SizeKB:           round2(float64(total) / 1024),
		ApproximateLimit: "5MB",
		PercentUsed:      round2(float64(total) / ApproximateLimitBytes * 100),
	}, nil
}

// availabilityProbeKey is written and removed by Available.
const availabilityProbeKey = "__storage_test__"

// Available reports whether the store accepts a write/delete round trip.
func Available(ctx context.Context, s Store) error {
	if err := s.Set(ctx, availabilityProbeKey, availabilityProbeKey); err != nil {
		return fmt.Errorf("probe write: %w", err)
	}
	if err := s.Delete(ctx, availabilityProbeKey); err != nil {
		return fmt.Errorf("probe delete: %w", err)
	}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
