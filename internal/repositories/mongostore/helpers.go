package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tourdesk/backoffice/internal/platform/textutil"
	"github.com/tourdesk/backoffice/internal/repositories"
)

func findByID[T any](ctx context.Context, coll *mongo.Collection, op, resource, id string) (T, error) {
	var rec T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, repositories.NewNotFoundError(op, resource, id)
	}
	if err != nil {
		return rec, wrapError(op, err)
	}
	return rec, nil
}

func insert(ctx context.Context, coll *mongo.Collection, op string, rec any) error {
	if _, err := coll.InsertOne(ctx, rec); err != nil {
		return wrapError(op, err)
	}
	return nil
}

func replace(ctx context.Context, coll *mongo.Collection, op, resource, id string, rec any) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, rec)
	if err != nil {
		return wrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return repositories.NewNotFoundError(op, resource, id)
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, op, resource, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapError(op, err)
	}
	if res.DeletedCount == 0 {
		return repositories.NewNotFoundError(op, resource, id)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, op string, filter bson.M) ([]T, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, wrapError(op, err)
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapError(op, err)
	}
	return out, nil
}

// searchClause matches the folded search key persisted with each document.
func searchClause(filter bson.M, search string) {
	if folded := textutil.Fold(strings.TrimSpace(search)); folded != "" {
		filter["searchKey"] = bson.M{"$regex": regexp.QuoteMeta(folded)}
	}
}
