package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourdesk/backoffice/internal/repositories"
	"github.com/tourdesk/backoffice/internal/repositories/records"
)

const maxCounterAttempts = 3

// CounterRepository increments sequences with single-document atomic updates.
type CounterRepository struct {
	coll  *mongo.Collection
	clock func() time.Time
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

// Next increments the counter with $inc. The filter only matches while the max value still has room,
// so an exhausted counter surfaces as a duplicate key on the upsert.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewCounterError("counters.next", repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step < 0 {
		return 0, repositories.NewCounterError("counters.next", repositories.CounterErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}

	increment := step
	if increment == 0 {
		stored, err := r.load(ctx, id)
		if err != nil {
			return 0, err
		}
		increment = stored.Step
	}
	if increment <= 0 {
		increment = 1
	}

	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"maxValue": bson.M{"$exists": false}},
			bson.M{"$expr": bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$currentValue", increment}}, "$maxValue"}}},
		},
	}
	update := bson.M{
		"$inc":         bson.M{"currentValue": increment},
		"$set":         bson.M{"updatedAt": r.clock().UTC()},
		"$setOnInsert": bson.M{"step": increment},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	for attempt := 1; ; attempt++ {
		var rec records.Counter
		err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
		if err == nil {
			return rec.CurrentValue, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, wrapError("counters.next", err)
		}
		// Either the counter is exhausted or a concurrent upsert created it first.
		stored, loadErr := r.load(ctx, id)
		if loadErr != nil {
			return 0, loadErr
		}
		if stored.MaxValue != nil && stored.CurrentValue+increment > *stored.MaxValue {
			return 0, repositories.NewCounterError("counters.next", repositories.CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, *stored.MaxValue), nil)
		}
		if attempt >= maxCounterAttempts {
			return 0, wrapError("counters.next", err)
		}
	}
}

// Configure sets step and max value. InitialValue is applied with $max so it never lowers the sequence.
func (r *CounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return repositories.NewCounterError("counters.configure", repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}

	set := bson.M{"updatedAt": r.clock().UTC()}
	if cfg.Step > 0 {
		set["step"] = cfg.Step
	}
	if cfg.MaxValue != nil {
		set["maxValue"] = *cfg.MaxValue
	}
	update := bson.M{"$set": set}
	if cfg.InitialValue != nil {
		update["$max"] = bson.M{"currentValue": *cfg.InitialValue}
	} else {
		update["$setOnInsert"] = bson.M{"currentValue": int64(0)}
	}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true)); err != nil {
		return wrapError("counters.configure", err)
	}
	return nil
}

func (r *CounterRepository) load(ctx context.Context, id string) (records.Counter, error) {
	var rec records.Counter
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return records.Counter{}, nil
	}
	if err != nil {
		return records.Counter{}, wrapError("counters.load", err)
	}
	return rec, nil
}
