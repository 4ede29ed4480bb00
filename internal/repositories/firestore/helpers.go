package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/tourdesk/backoffice/internal/platform/firestore"
)

// replaceDocument overwrites an existing document and reports not found when it is missing.
func replaceDocument[T any](ctx context.Context, base *pfirestore.BaseRepository[T], op, id string, value T) error {
	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	return base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return pfirestore.WrapError(op, err)
		}
		return tx.Set(ref, value)
	})
}
