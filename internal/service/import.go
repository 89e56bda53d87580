package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/voyagen/channelvault/internal/fetcher"
)

// ImportOptions controls how a playlist is fetched and applied.
type ImportOptions struct {
	UserAgent string
	Timeout   time.Duration
	// UseTvgID prefers tvg-id over the comma title when tvg-name is empty.
	UseTvgID bool
	// Reorder also applies the playlist order as channel positions.
	Reorder bool
}

// ImportResult summarizes one import.
type ImportResult struct {
	Imported  int
	Skipped   int
	Reordered int
}

// Import reads an M3U playlist from a local path or http(s) URL and upserts
// its entries through the same bulk path as the bulkUpsert action.
// Existing channels keep their position unless opts.Reorder is set.
func (c *Catalog) Import(ctx context.Context, src string, opts ImportOptions) (ImportResult, error) {
	var res ImportResult
	if src == "" {
		return res, fmt.Errorf("playlist path or URL is required")
	}

	entries, err := fetcher.Load(ctx, src, opts.UserAgent, opts.UseTvgID, opts.Timeout)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}

	bulk := NewBulkUpsert(entries)
	res.Skipped = bulk.Skipped
	if err := c.Apply(ctx, bulk); err != nil {
		return res, fmt.Errorf("bulk upsert: %w", err)
	}
	res.Imported = len(bulk.Items)

	if opts.Reorder {
		// A name listed twice keeps its first position.
		seen := make(map[string]struct{}, len(bulk.Items))
		order := make([]string, 0, len(bulk.Items))
		for _, ch := range bulk.Items {
			if _, ok := seen[ch.Name]; ok {
				continue
			}
			seen[ch.Name] = struct{}{}
			order = append(order, ch.Name)
		}
		if err := c.Apply(ctx, ReorderRequest{Order: order}); err != nil {
			return res, fmt.Errorf("reorder: %w", err)
		}
		res.Reordered = len(order)
	}

	c.log.WithFields(log.Fields{
		"src":       src,
		"imported":  res.Imported,
		"skipped":   res.Skipped,
		"reordered": res.Reordered,
	}).Info("playlist imported")
	return res, nil
}
