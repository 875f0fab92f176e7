package syncer

import (
	"sort"

	"github.com/HelyeFab/moshimoshi-sub004/internal/domain/entities"
)

// Read-merge conflict resolution between local and remote copies. Policy is
// field-class-specific: last-write-wins for scalar state, union for
// collections, append-only for logs.

// MergeSchedules resolves a schedule conflict last-write-wins by the server
// timestamp carried in UpdatedAt. Either side may be nil.
func MergeSchedules(local, remote *entities.ScheduleState) *entities.ScheduleState {
	switch {
	case local == nil:
		return remote
	case remote == nil:
		return local
	case remote.UpdatedAt.After(local.UpdatedAt):
		return remote
	default:
		return local
	}
}

// UnionTags merges two collection-valued fields, preserving every element
// seen on either side. Output is sorted for stable comparison.
func UnionTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// MergeSessionHistory merges session logs append-only: every session seen on
// either side survives, keyed by session ID, ordered by start time. For a
// session present on both sides the one that progressed further wins.
func MergeSessionHistory(local, remote []*entities.ReviewSession) []*entities.ReviewSession {
	byID := make(map[string]*entities.ReviewSession, len(local)+len(remote))
	for _, s := range local {
		byID[s.ID] = s
	}
	for _, s := range remote {
		if existing, ok := byID[s.ID]; ok {
			if s.CurrentIndex > existing.CurrentIndex {
				byID[s.ID] = s
			}
			continue
		}
		byID[s.ID] = s
	}

	out := make([]*entities.ReviewSession, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
