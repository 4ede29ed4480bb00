package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories"
)

var viewedAt = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

func TestQuoteRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate quote number is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: tourdesk.quotes index: unique_quote_number",
		}))
		repo := NewRegistry(mt.DB).Quotes()

		err := repo.Insert(context.Background(), domain.Quote{ID: "q2", QuoteNumber: "QT2024030001"})

		var repoErr repositories.RepositoryError
		require.True(mt, errors.As(err, &repoErr))
		assert.True(mt, repoErr.IsConflict())
	})

	mt.Run("record view returns the updated quote", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: "q1"},
				{Key: "quoteNumber", Value: "QT2024030001"},
				{Key: "status", Value: "sent"},
				{Key: "sentInfo", Value: bson.D{
					{Key: "viewCount", Value: int32(4)},
					{Key: "lastViewedAt", Value: primitive.NewDateTimeFromTime(viewedAt)},
				}},
			}},
		})
		repo := NewRegistry(mt.DB).Quotes()

		quote, err := repo.RecordView(context.Background(), "q1", viewedAt)
		require.NoError(mt, err)
		assert.Equal(mt, "q1", quote.ID)
		assert.Equal(mt, 4, quote.SentInfo.ViewCount)
		require.NotNil(mt, quote.SentInfo.LastViewedAt)
		assert.True(mt, quote.SentInfo.LastViewedAt.Equal(viewedAt))
	})

	mt.Run("missing quote is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tourdesk.quotes", mtest.FirstBatch))
		repo := NewRegistry(mt.DB).Quotes()

		_, err := repo.FindByID(context.Background(), "missing")

		var repoErr repositories.RepositoryError
		require.True(mt, errors.As(err, &repoErr))
		assert.True(mt, repoErr.IsNotFound())
	})

	mt.Run("count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tourdesk.quotes", mtest.FirstBatch, bson.D{{Key: "n", Value: int64(41)}}))
		repo := NewRegistry(mt.DB).Quotes()

		n, err := repo.Count(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, int64(41), n)
	})
}

func TestTourRepository_List(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes and orders newest first", func(mt *mtest.T) {
		older := primitive.NewDateTimeFromTime(viewedAt.Add(-time.Hour))
		newer := primitive.NewDateTimeFromTime(viewedAt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tourdesk.tours", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "t1"}, {Key: "name", Value: "Hạ Long"}, {Key: "category", Value: "domestic"}, {Key: "createdAt", Value: older}},
			bson.D{{Key: "_id", Value: "t2"}, {Key: "name", Value: "Huế"}, {Key: "category", Value: "domestic"}, {Key: "createdAt", Value: newer}},
		))
		repo := NewRegistry(mt.DB).Tours()

		page, err := repo.List(context.Background(), repositories.TourFilter{Category: domain.TourCategoryDomestic, Search: "hue"})
		require.NoError(mt, err)
		require.Len(mt, page.Items, 2)
		assert.Equal(mt, "t2", page.Items[0].ID)
		assert.Equal(mt, domain.TourCategoryDomestic, page.Items[0].Category)
	})
}

func TestCounterRepository_Next(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns incremented value", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{{Key: "_id", Value: "quotes:global"}, {Key: "currentValue", Value: int64(42)}}},
		})
		repo := NewRegistry(mt.DB).Counters()

		value, err := repo.Next(context.Background(), "quotes:global", 1)
		require.NoError(mt, err)
		assert.Equal(mt, int64(42), value)
	})

	mt.Run("exhausted counter", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "E11000 duplicate key error", Name: "DuplicateKey"}),
			mtest.CreateCursorResponse(0, "tourdesk.counters", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "bounded"},
				{Key: "currentValue", Value: int64(3)},
				{Key: "maxValue", Value: int64(3)},
			}),
		)
		repo := NewRegistry(mt.DB).Counters()

		_, err := repo.Next(context.Background(), "bounded", 1)

		var counterErr *repositories.CounterError
		require.True(mt, errors.As(err, &counterErr))
		assert.Equal(mt, repositories.CounterErrorExhausted, counterErr.Code)
	})

	mt.Run("rejects empty id", func(mt *mtest.T) {
		repo := NewRegistry(mt.DB).Counters()
		_, err := repo.Next(context.Background(), " ", 1)

		var counterErr *repositories.CounterError
		require.True(mt, errors.As(err, &counterErr))
		assert.Equal(mt, repositories.CounterErrorInvalidInput, counterErr.Code)
	})
}
