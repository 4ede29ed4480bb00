package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories/memory"
)

func newVersionServiceForTest(t *testing.T) (TourVersionService, *memory.Registry) {
	t.Helper()
	store := memory.NewRegistry()
	seedTour(t, store, "tour-1")
	svc, err := NewTourVersionService(TourVersionServiceDeps{
		Tours:       store.Tours(),
		Versions:    store.TourVersions(),
		Clock:       fixedClock,
		IDGenerator: sequentialIDs("ver-"),
	})
	if err != nil {
		t.Fatalf("NewTourVersionService: %v", err)
	}
	return svc, store
}

func seasonalCommand(start, end int) TourVersionCommand {
	return TourVersionCommand{
		TourID:       "tour-1",
		Name:         "Mùa cao điểm hè",
		VersionType:  domain.VersionTypeSeasonal,
		StartDate:    day(start),
		EndDate:      day(end),
		SeasonalInfo: &domain.SeasonalInfo{Season: domain.SeasonPeak, PeakMultiplier: ptr(1.2)},
		Pricing:      domain.VersionPricing{Child: 600_000},
		ActorID:      "op-3",
	}
}

func TestTourVersionService_CreateSeasonalDerivesPrice(t *testing.T) {
	svc, _ := newVersionServiceForTest(t)

	version, err := svc.CreateVersion(context.Background(), seasonalCommand(-1, 30))
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if version.Pricing.Adult != 1_200_000 || version.Pricing.BasePrice != 1_200_000 || version.Pricing.Child != 600_000 {
		t.Fatalf("unexpected derived pricing %+v", version.Pricing)
	}
	if version.DisplayPriority != 1 {
		t.Fatalf("expected seasonal priority 1, got %d", version.DisplayPriority)
	}
	if version.Status != domain.VersionStatusActive {
		t.Fatalf("expected draft inside its window to be saved active, got %s", version.Status)
	}
}

func TestTourVersionService_CreatePromotionDefaults(t *testing.T) {
	svc, _ := newVersionServiceForTest(t)
	version, err := svc.CreateVersion(context.Background(), TourVersionCommand{
		TourID:        "tour-1",
		Name:          "Khuyến mãi tháng 4",
		VersionType:   domain.VersionTypePromotion,
		StartDate:     day(10),
		EndDate:       day(40),
		PromotionInfo: &domain.PromotionInfo{DiscountAmount: 200_000, PromotionCode: " he2024 "},
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if version.Pricing.Adult != 800_000 || version.Status != domain.VersionStatusDraft {
		t.Fatalf("expected 800000 draft, got %d %s", version.Pricing.Adult, version.Status)
	}
	if version.PromotionInfo.PromotionCode != "HE2024" {
		t.Fatalf("expected normalised promotion code, got %q", version.PromotionInfo.PromotionCode)
	}
}

func TestTourVersionService_CreateRejectsOverlap(t *testing.T) {
	svc, _ := newVersionServiceForTest(t)
	ctx := context.Background()
	first, err := svc.CreateVersion(ctx, seasonalCommand(0, 30))
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	_, err = svc.CreateVersion(ctx, seasonalCommand(20, 50))
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) || len(conflict.ConflictingIDs) != 1 || conflict.ConflictingIDs[0] != first.ID {
		t.Fatalf("expected conflict with %s, got %v", first.ID, err)
	}

	special := TourVersionCommand{
		TourID: "tour-1", Name: "VIP", VersionType: domain.VersionTypeSpecial,
		StartDate: day(5), EndDate: day(6),
		Pricing:     domain.VersionPricing{Adult: 5_000_000},
		SpecialInfo: &domain.SpecialInfo{EventType: domain.SpecialEventVIP, IsVIP: true},
	}
	created, err := svc.CreateVersion(ctx, special)
	if err != nil {
		t.Fatalf("expected a different type to overlap freely, got %v", err)
	}
	if created.SpecialInfo.MaxParticipants != 10 || created.SpecialInfo.LuxuryLevel != 5 || created.Pricing.Adult != 5_000_000 {
		t.Fatalf("unexpected special version %+v %+v", created.SpecialInfo, created.Pricing)
	}
}

func TestTourVersionService_CreateValidation(t *testing.T) {
	svc, _ := newVersionServiceForTest(t)
	ctx := context.Background()

	backwards := seasonalCommand(10, 5)
	var vErr *ValidationError
	if _, err := svc.CreateVersion(ctx, backwards); !errors.As(err, &vErr) || vErr.Field != "endDate" {
		t.Fatalf("expected endDate validation error, got %v", err)
	}
	missingTour := seasonalCommand(0, 5)
	missingTour.TourID = "tour-x"
	if _, err := svc.CreateVersion(ctx, missingTour); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown tour, got %v", err)
	}
	badPromo := seasonalCommand(0, 5)
	badPromo.VersionType = domain.VersionTypePromotion
	badPromo.PromotionInfo = &domain.PromotionInfo{DiscountPercentage: 150}
	if _, err := svc.CreateVersion(ctx, badPromo); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTourVersionService_UpdateChecksOverlapOnlyWhenWindowChanges(t *testing.T) {
	svc, store := newVersionServiceForTest(t)
	ctx := context.Background()
	first, _ := svc.CreateVersion(ctx, seasonalCommand(0, 30))
	// A legacy overlapping sibling written before validation existed.
	seedVersion(t, store, domain.TourVersion{
		ID: "legacy", TourID: "tour-1", VersionType: domain.VersionTypeSeasonal, Status: domain.VersionStatusDraft,
		StartDate: day(10), EndDate: day(20),
	})

	rename := seasonalCommand(0, 30)
	rename.Name = "Hè rực rỡ"
	rename.Pricing = first.Pricing
	updated, err := svc.UpdateVersion(ctx, first.ID, rename)
	if err != nil {
		t.Fatalf("expected update without window change to skip overlap, got %v", err)
	}
	if updated.Name != "Hè rực rỡ" || updated.CreatedBy != "op-3" {
		t.Fatalf("unexpected updated version %+v", updated)
	}

	moved := rename
	moved.EndDate = day(31)
	if _, err := svc.UpdateVersion(ctx, first.ID, moved); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict once the window changes, got %v", err)
	}

	otherTour := rename
	otherTour.TourID = "tour-2"
	if _, err := svc.UpdateVersion(ctx, first.ID, otherTour); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput when moving between tours, got %v", err)
	}
}

func TestTourVersionService_ReactivationChecksOverlap(t *testing.T) {
	svc, _ := newVersionServiceForTest(t)
	ctx := context.Background()
	first, err := svc.CreateVersion(ctx, seasonalCommand(0, 30))
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	paused := seasonalCommand(0, 30)
	paused.Status = domain.VersionStatusInactive
	if _, err := svc.UpdateVersion(ctx, first.ID, paused); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	second, err := svc.CreateVersion(ctx, seasonalCommand(10, 20))
	if err != nil {
		t.Fatalf("expected inactive sibling to free its window, got %v", err)
	}

	resumed := seasonalCommand(0, 30)
	resumed.Status = domain.VersionStatusActive
	_, err = svc.UpdateVersion(ctx, first.ID, resumed)
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) || len(conflict.ConflictingIDs) != 1 || conflict.ConflictingIDs[0] != second.ID {
		t.Fatalf("expected reactivation to conflict with %s, got %v", second.ID, err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTourVersionService_ReadsReportEffectiveStatus(t *testing.T) {
	svc, store := newVersionServiceForTest(t)
	ctx := context.Background()
	seedVersion(t, store, domain.TourVersion{
		ID: "stale", TourID: "tour-1", VersionType: domain.VersionTypePromotion, Status: domain.VersionStatusActive,
		StartDate: day(-20), EndDate: day(-1),
	})

	got, err := svc.GetVersion(ctx, "stale")
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if got.Status != domain.VersionStatusExpired {
		t.Fatalf("expected stale active version to read as expired, got %s", got.Status)
	}
}

func TestTourVersionService_ListByTourOrdering(t *testing.T) {
	svc, store := newVersionServiceForTest(t)
	ctx := context.Background()
	for _, v := range []domain.TourVersion{
		{ID: "seasonal-late", VersionType: domain.VersionTypeSeasonal, Status: domain.VersionStatusDraft, StartDate: day(40), EndDate: day(50)},
		{ID: "seasonal-early", VersionType: domain.VersionTypeSeasonal, Status: domain.VersionStatusActive, StartDate: day(-5), EndDate: day(10)},
		{ID: "special", VersionType: domain.VersionTypeSpecial, Status: domain.VersionStatusDraft, StartDate: day(60), EndDate: day(61)},
		{ID: "promo-off", VersionType: domain.VersionTypePromotion, Status: domain.VersionStatusInactive, StartDate: day(0), EndDate: day(5)},
	} {
		v.TourID = "tour-1"
		seedVersion(t, store, v)
	}

	versions, err := svc.ListVersionsByTour(ctx, "tour-1")
	if err != nil {
		t.Fatalf("ListVersionsByTour: %v", err)
	}
	var ids []string
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	want := []string{"special", "seasonal-early", "seasonal-late"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestTourVersionService_PricePreview(t *testing.T) {
	svc, store := newVersionServiceForTest(t)
	ctx := context.Background()

	preview, err := svc.CalculateVersionPricePreview(ctx, VersionPricePreviewCommand{
		TourID:        "tour-1",
		VersionType:   domain.VersionTypePromotion,
		PromotionInfo: &domain.PromotionInfo{DiscountPercentage: 30},
	})
	if err != nil {
		t.Fatalf("CalculateVersionPricePreview: %v", err)
	}
	if preview != (domain.VersionPricePreview{OriginalPrice: 1_000_000, CalculatedPrice: 700_000, Discount: 300_000}) {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if _, err := svc.CalculateVersionPricePreview(ctx, VersionPricePreviewCommand{TourID: "nope", VersionType: domain.VersionTypeSpecial}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if count, _ := store.Quotes().Count(ctx); count != 0 {
		t.Fatalf("preview must not write anything")
	}
}
