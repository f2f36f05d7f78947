// Package analytics derives the per-channel and per-category breakdown
// of the raw collection.
package analytics

import (
	"sort"

	"github.com/ratewatch/rated-history-go/internal/classify"
	"github.com/ratewatch/rated-history-go/internal/models"
)

// Sentinel buckets for records whose origin is gone.
const (
	// UnavailableChannel collects unavailable records with no channel
	// name left. It carries no channel id, so it never renders as a
	// link.
	UnavailableChannel = "Unavailable"

	// DeletedCategory collects every unavailable record regardless of
	// its nominal category.
	DeletedCategory = "deleted"
)

// TopCategories is how many ranked categories the snapshot keeps.
const TopCategories = 4

// Aggregate computes the analytics snapshot from the raw collection.
// Channel ranking is by count descending, ties broken by first-seen
// order; the category ranking is truncated to TopCategories with each
// percent taken against the full collection size.
func Aggregate(collection []*models.VideoRecord) *models.AnalyticsSnapshot {
	snapshot := &models.AnalyticsSnapshot{
		TotalSize: len(collection),
	}
	if len(collection) == 0 {
		return snapshot
	}

	type bucket struct {
		stat  models.ChannelStat
		order int
	}
	channels := make(map[string]*bucket)
	categories := make(map[string]int)
	categoryOrder := make(map[string]int)

	for _, rec := range collection {
		unavailable := classify.IsUnavailable(rec)

		name := rec.ChannelTitle
		if name == "" {
			if unavailable {
				name = UnavailableChannel
			} else {
				name = "Unknown channel"
			}
		}

		b, ok := channels[name]
		if !ok {
			b = &bucket{stat: models.ChannelStat{ChannelTitle: name}, order: len(channels)}
			channels[name] = b
		}
		b.stat.Count++
		// Only available records may contribute a linkable channel id.
		if !unavailable && b.stat.ChannelID == "" {
			b.stat.ChannelID = rec.ChannelID
		}

		cat := rec.CategoryID
		if unavailable {
			cat = DeletedCategory
		} else if cat == "" {
			cat = "unknown"
		}
		if _, ok := categoryOrder[cat]; !ok {
			categoryOrder[cat] = len(categoryOrder)
		}
		categories[cat]++
	}

	ranked := make([]*bucket, 0, len(channels))
	for _, b := range channels {
		ranked = append(ranked, b)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].stat.Count != ranked[j].stat.Count {
			return ranked[i].stat.Count > ranked[j].stat.Count
		}
		return ranked[i].order < ranked[j].order
	})
	snapshot.Channels = make([]models.ChannelStat, 0, len(ranked))
	for _, b := range ranked {
		snapshot.Channels = append(snapshot.Channels, b.stat)
	}

	catStats := make([]models.CategoryStat, 0, len(categories))
	for id, count := range categories {
		catStats = append(catStats, models.CategoryStat{
			CategoryID: id,
			Count:      count,
			Percent:    float64(count) / float64(len(collection)) * 100,
		})
	}
	sort.SliceStable(catStats, func(i, j int) bool {
		if catStats[i].Count != catStats[j].Count {
			return catStats[i].Count > catStats[j].Count
		}
		return categoryOrder[catStats[i].CategoryID] < categoryOrder[catStats[j].CategoryID]
	})
	if len(catStats) > TopCategories {
		catStats = catStats[:TopCategories]
	}
	snapshot.Categories = catStats

	return snapshot
}
