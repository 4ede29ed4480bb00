package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories/memory"
)

var testNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%03d", prefix, n)
	}
}

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, offset)
}

func ptr[T any](v T) *T { return &v }

// seedTour stores a domestic tour priced at 1,000,000 with a per-type table.
func seedTour(t *testing.T, store *memory.Registry, id string) domain.Tour {
	t.Helper()
	tour := domain.Tour{
		ID:            id,
		Name:          "Hà Nội - Hạ Long 3N2Đ",
		Description:   "Vịnh Hạ Long và phố cổ",
		Category:      domain.TourCategoryDomestic,
		CategoryLabel: "Tour trong nước",
		Destination:   "Hạ Long",
		Price:         1_000_000,
		Pricing:       &domain.PriceTable{Adult: 1_000_000, Child: 500_000, Infant: 0, Senior: 800_000},
		Duration:      3,
		Status:        domain.TourStatusActive,
		CreatedAt:     testNow.Add(-time.Hour),
		UpdatedAt:     testNow.Add(-time.Hour),
	}
	if err := store.Tours().Insert(context.Background(), tour); err != nil {
		t.Fatalf("seed tour: %v", err)
	}
	return tour
}

func seedVersion(t *testing.T, store *memory.Registry, version domain.TourVersion) domain.TourVersion {
	t.Helper()
	if version.DisplayPriority == 0 {
		version.DisplayPriority = DisplayPriority(version.VersionType)
	}
	if err := store.TourVersions().Insert(context.Background(), version); err != nil {
		t.Fatalf("seed version: %v", err)
	}
	return version
}
