package repositories

import (
	"sort"
	"strings"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/platform/textutil"
)

// Stores that cannot express every predicate natively narrow by equality fields and then apply
// these helpers in memory, so every driver lists with identical semantics.

// Matches reports whether tour satisfies the filter.
func (f TourFilter) Matches(tour domain.Tour) bool {
	if f.Category != "" && tour.Category != f.Category {
		return false
	}
	if f.Status != "" && tour.Status != f.Status {
		return false
	}
	return textutil.ContainsFold(f.Search, TourSearchFields(tour)...)
}

// Matches reports whether version satisfies the filter.
func (f TourVersionFilter) Matches(version domain.TourVersion) bool {
	if id := strings.TrimSpace(f.TourID); id != "" && version.TourID != id {
		return false
	}
	if f.VersionType != "" && version.VersionType != f.VersionType {
		return false
	}
	if f.Status != "" && version.Status != f.Status {
		return false
	}
	return true
}

// Matches reports whether quote satisfies the filter.
func (f QuoteFilter) Matches(quote domain.Quote) bool {
	if id := strings.TrimSpace(f.TourID); id != "" && quote.TourID != id {
		return false
	}
	if f.Status != "" && quote.Status != f.Status {
		return false
	}
	return textutil.ContainsFold(f.Search, QuoteSearchFields(quote)...)
}

// TourSearchFields lists the tour fields covered by free-text search.
func TourSearchFields(tour domain.Tour) []string {
	return []string{tour.Name, tour.Destination, tour.Description}
}

// QuoteSearchFields lists the quote fields covered by free-text search.
func QuoteSearchFields(quote domain.Quote) []string {
	return []string{quote.QuoteNumber, quote.Customer.Name, quote.Customer.Email, quote.Customer.Company}
}

// SearchKey folds fields into the single lowercase, accent-free string persisted for substring search.
func SearchKey(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if folded := textutil.Fold(f); folded != "" {
			parts = append(parts, folded)
		}
	}
	return strings.Join(parts, " | ")
}

// SortTours orders tours newest first.
func SortTours(tours []domain.Tour) {
	sort.SliceStable(tours, func(i, j int) bool {
		if !tours[i].CreatedAt.Equal(tours[j].CreatedAt) {
			return tours[i].CreatedAt.After(tours[j].CreatedAt)
		}
		return tours[i].ID > tours[j].ID
	})
}

// SortVersions orders versions by display priority, then newest first.
func SortVersions(versions []domain.TourVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		if versions[i].DisplayPriority != versions[j].DisplayPriority {
			return versions[i].DisplayPriority > versions[j].DisplayPriority
		}
		if !versions[i].CreatedAt.Equal(versions[j].CreatedAt) {
			return versions[i].CreatedAt.After(versions[j].CreatedAt)
		}
		return versions[i].ID > versions[j].ID
	})
}

// SortQuotes orders quotes newest first.
func SortQuotes(quotes []domain.Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if !quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
		}
		return quotes[i].ID > quotes[j].ID
	})
}

// ContainsStatus reports whether status is listed.
func ContainsStatus(statuses []domain.VersionStatus, status domain.VersionStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
