package services

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"atchaboyholla-server/models"
)

// Sort modes for review listings.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortHighest = "highest"
	SortLowest  = "lowest"
)

// ListingQuery is the client-side view state applied to a fetched review set.
type ListingQuery struct {
	Search    string
	MinRating float64
	Sort      string
}

// ListingStats aggregates the filtered set: item count and arithmetic mean
// rating (0 when the set is empty).
type ListingStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Stars   string  `json:"stars"`
}

// ApplyListingQuery filters and sorts a fetched review set, in order:
// search filter, minimum-rating filter, then sort. The input slice is not
// modified.
func ApplyListingQuery(items []models.Review, q ListingQuery) []models.Review {
	out := make([]models.Review, len(items))
	copy(out, items)

	search := strings.ToLower(strings.TrimSpace(q.Search))
	if search != "" {
		searchNum, numErr := strconv.ParseFloat(search, 64)
		isNum := numErr == nil

		kept := out[:0]
		for _, r := range out {
			hay := strings.ToLower(r.Title + " " + r.Body)
			if strings.Contains(hay, search) || (isNum && r.Rating == searchNum) {
				kept = append(kept, r)
			}
		}
		out = kept
	}

	if q.MinRating > 0 {
		kept := out[:0]
		for _, r := range out {
			if r.Rating >= q.MinRating {
				kept = append(kept, r)
			}
		}
		out = kept
	}

	sortMode := q.Sort
	if sortMode == "" {
		sortMode = SortNewest
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch sortMode {
		case SortHighest:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.CreatedAt.After(b.CreatedAt)
		case SortLowest:
			if a.Rating != b.Rating {
				return a.Rating < b.Rating
			}
			return a.CreatedAt.After(b.CreatedAt)
		case SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	return out
}

// Summarize computes the stats panel for a filtered set. The result depends
// only on set membership, not order.
func Summarize(items []models.Review) ListingStats {
	stats := ListingStats{Count: len(items)}
	if len(items) > 0 {
		var total float64
		for _, r := range items {
			total += r.Rating
		}
		stats.Average = total / float64(len(items))
	}
	stats.Stars = ToStars(stats.Average)
	return stats
}

// TopRated returns the n highest-rated reviews from the filtered set, ties
// broken by newer timestamp first. Independent of the listing's sort mode.
func TopRated(items []models.Review, n int) []models.Review {
	top := make([]models.Review, len(items))
	copy(top, items)

	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Rating != top[j].Rating {
			return top[i].Rating > top[j].Rating
		}
		return top[i].CreatedAt.After(top[j].CreatedAt)
	})

	if len(top) > n {
		top = top[:n]
	}
	return top
}

// ToStars renders a rating as exactly five glyphs, filled count being the
// rating rounded to the nearest whole star after clamping to [0,5].
func ToStars(rating float64) string {
	r := math.Max(0, math.Min(5, rating))
	whole := int(math.Round(r))
	return strings.Repeat("★", whole) + strings.Repeat("☆", 5-whole)
}
