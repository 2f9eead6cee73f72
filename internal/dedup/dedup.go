// Package dedup merges overlapping event streams into one
// deduplicated set and reconciles conflicting claimed-amount sources.
package dedup

import (
	"presale-dashboard/internal/domain"
)

// Deduplicate merges N event streams, keeping the first occurrence of
// each (tx hash, log index) key. Output order is as encountered;
// consumers re-sort for display.
func Deduplicate(streams ...[]domain.Event) []domain.Event {
	seen := make(map[domain.EventKey]struct{})
	var merged []domain.Event

	for _, stream := range streams {
		for _, ev := range stream {
			key := ev.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, ev)
		}
	}

	return merged
}

// ByKind splits a deduplicated set into per-kind slices, preserving
// encounter order within each kind.
func ByKind(events []domain.Event) map[domain.EventKind][]domain.Event {
	out := make(map[domain.EventKind][]domain.Event)
	for _, ev := range events {
		out[ev.Kind] = append(out[ev.Kind], ev)
	}
	return out
}
