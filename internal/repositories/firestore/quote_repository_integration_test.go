//go:build integration

package firestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories"
)

func TestQuoteRepositoryIntegration(t *testing.T) {
	provider := newEmulatorProvider(t, "quote-test")
	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	repo := registry.Quotes()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	created := time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC)
	quote := domain.Quote{
		ID:          "q-1",
		QuoteNumber: "QT2024030001",
		TourID:      "tour-1",
		Customer:    domain.Customer{Name: "Nguyễn Văn An", Email: "an@example.com"},
		GroupInfo:   domain.GroupInfo{TotalParticipants: 2, Adults: 2},
		Status:      domain.QuoteStatusDraft,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if err := repo.Insert(ctx, quote); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := quote
	dup.ID = "q-2"
	err = repo.Insert(ctx, dup)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict for duplicate quote number, got %v", err)
	}

	viewed := created.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := repo.RecordView(ctx, quote.ID, viewed); err != nil {
			t.Fatalf("record view: %v", err)
		}
	}
	got, err := repo.FindByID(ctx, quote.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.SentInfo.ViewCount != 3 {
		t.Fatalf("expected 3 views, got %d", got.SentInfo.ViewCount)
	}
	if got.SentInfo.LastViewedAt == nil || !got.SentInfo.LastViewedAt.Equal(viewed) {
		t.Fatalf("expected lastViewedAt %v, got %v", viewed, got.SentInfo.LastViewedAt)
	}

	page, err := repo.List(ctx, repositories.QuoteFilter{Search: "nguyen van"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != quote.ID {
		t.Fatalf("expected accent-insensitive match, got %+v", page.Items)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	if err := repo.Delete(ctx, quote.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// The number reservation is released with the quote.
	if err := repo.Insert(ctx, dup); err != nil {
		t.Fatalf("reinsert after delete: %v", err)
	}
}
