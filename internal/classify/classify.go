// Package classify infers whether a rated video still exists from the
// incomplete metadata the listing API returns for gone content. It is
// the single source of truth for "this video is unavailable"; sorting,
// rendering and analytics all go through it.
package classify

import (
	"strings"

	"github.com/ratewatch/rated-history-go/internal/models"
)

// Title phrases the service substitutes for content it can no longer show.
var unavailableTitlePhrases = []string{
	"deleted video",
	"private video",
	"unavailable video",
}

// IsUnavailable reports whether the record represents deleted, private
// or otherwise gone content. Pure and deterministic: the same record
// always classifies the same way, and a record flagged via the
// thumbnail feedback stays unavailable for its whole lifetime.
func IsUnavailable(v *models.VideoRecord) bool {
	if v.KnownUnavailable {
		return true
	}

	switch v.UploadStatus {
	case "deleted", "rejected":
		return true
	}
	if v.PrivacyStatus == "private" {
		return true
	}

	if !v.HasSnippet {
		return true
	}

	title := strings.ToLower(v.Title)
	for _, phrase := range unavailableTitlePhrases {
		if strings.Contains(title, phrase) {
			return true
		}
	}

	if v.ThumbnailCount == 0 {
		return true
	}

	// Gone videos come back without a view-count statistic.
	if !v.HasStatistics {
		return true
	}

	return false
}
