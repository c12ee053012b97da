// Package evidence resolves supporting links for drafts through an
// external search capability, deduplicating by URL host.
package evidence

import (
	"context"
	"net/url"
	"strings"

	"cadence/internal/logging"
	"cadence/internal/schedule"
)

// Searcher is the external search capability boundary.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]schedule.EvidenceLink, error)
}

// Resolver dedups and ranks search results. It never fails: an absent
// or erroring capability yields an empty list.
type Resolver struct {
	searcher Searcher
	logger   logging.Logger
}

// NewResolver builds a resolver; searcher may be nil.
func NewResolver(searcher Searcher, logger logging.Logger) *Resolver {
	return &Resolver{searcher: searcher, logger: logging.OrNop(logger)}
}

// Resolve runs the query and returns at most limit links, keeping the
// first result per host in capability order.
func (r *Resolver) Resolve(ctx context.Context, query string, limit int) []schedule.EvidenceLink {
	if r.searcher == nil || strings.TrimSpace(query) == "" || limit <= 0 {
		return []schedule.EvidenceLink{}
	}
	results, err := r.searcher.Search(ctx, query, limit)
	if err != nil {
		r.logger.Warn("evidence search failed for %q: %v", query, err)
		return []schedule.EvidenceLink{}
	}

	seen := make(map[string]bool, len(results))
	links := make([]schedule.EvidenceLink, 0, limit)
	for _, result := range results {
		if result.URL == "" {
			continue
		}
		key := hostKey(result.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, result)
		if len(links) == limit {
			break
		}
	}
	return links
}

// hostKey extracts a lowercase host for dedup; unparseable URLs dedup
// on their raw text.
func hostKey(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
}
