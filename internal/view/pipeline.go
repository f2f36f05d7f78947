// Package view derives the displayable ordered subset of the
// collection from the search term and sort key. Projection is pure:
// identical inputs yield an identical sequence, and the source order is
// the implicit tie-break for every comparator.
package view

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ratewatch/rated-history-go/internal/classify"
	"github.com/ratewatch/rated-history-go/internal/isodur"
	"github.com/ratewatch/rated-history-go/internal/models"
)

// Project filters the collection by the search term and orders the
// result by the sort key. The input slice is never mutated; the result
// is a fresh slice sharing the record pointers.
func Project(collection []*models.VideoRecord, term string, key models.SortKey) []*models.VideoRecord {
	results := filter(collection, term)

	cmp := comparator(key)
	if cmp != nil {
		// Stable: comparators return 0 on ties so equal records keep
		// their arrival order.
		sort.SliceStable(results, func(i, j int) bool {
			return cmp(results[i], results[j]) < 0
		})
	}

	return results
}

// filter keeps records whose title or channel name contains the term as
// a case-insensitive substring. An empty term keeps everything.
func filter(collection []*models.VideoRecord, term string) []*models.VideoRecord {
	results := make([]*models.VideoRecord, 0, len(collection))

	if term == "" {
		return append(results, collection...)
	}

	lower := strings.ToLower(term)
	for _, rec := range collection {
		if strings.Contains(strings.ToLower(rec.Title), lower) ||
			strings.Contains(strings.ToLower(rec.ChannelTitle), lower) {
			results = append(results, rec)
		}
	}

	return results
}

type cmpFunc func(a, b *models.VideoRecord) int

// comparator returns the compare function for the sort key, or nil for
// recency, which keeps the server's rating-recency order untouched.
func comparator(key models.SortKey) cmpFunc {
	switch key {
	case models.SortDurationDesc:
		return func(a, b *models.VideoRecord) int {
			return compareInt64(isodur.SecondsOrZero(b.Duration), isodur.SecondsOrZero(a.Duration))
		}
	case models.SortUploadOldest:
		return func(a, b *models.VideoRecord) int {
			switch {
			case a.PublishedAt.Before(b.PublishedAt):
				return -1
			case b.PublishedAt.Before(a.PublishedAt):
				return 1
			}
			return 0
		}
	case models.SortCommentsDesc:
		return func(a, b *models.VideoRecord) int {
			return compareInt64(b.CommentCount, a.CommentCount)
		}
	case models.SortViewsDesc:
		return func(a, b *models.VideoRecord) int {
			return compareInt64(b.ViewCount, a.ViewCount)
		}
	case models.SortChannelAZ:
		cl := newCollator()
		return func(a, b *models.VideoRecord) int {
			return cl.CompareString(a.ChannelTitle, b.ChannelTitle)
		}
	case models.SortTitleAZ:
		cl := newCollator()
		return func(a, b *models.VideoRecord) int {
			return cl.CompareString(a.Title, b.Title)
		}
	case models.SortUnavailableFirst:
		return func(a, b *models.VideoRecord) int {
			return compareBool(classify.IsUnavailable(b), classify.IsUnavailable(a))
		}
	case models.SortMusicLast:
		return func(a, b *models.VideoRecord) int {
			return compareBool(a.CategoryID == models.MusicCategoryID, b.CategoryID == models.MusicCategoryID)
		}
	default:
		return nil
	}
}

// newCollator builds a locale-aware, case-insensitive collator per sort
// run; collators carry internal buffers and are not safe to share.
func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareBool orders false before true.
func compareBool(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	}
	return 0
}
