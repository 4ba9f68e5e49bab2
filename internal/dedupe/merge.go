package dedupe

import (
	"context"
)

// KeywordDeleter is the write side of the keyword store the merge needs.
// DeleteMany must remove all listed ids in a single all-or-nothing
// operation and report how many rows were actually removed.
type KeywordDeleter interface {
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// MergeResult reports the surviving keyword and how many duplicates were
// removed.
type MergeResult struct {
	Kept         string `json:"kept"`
	DeletedCount int64  `json:"deleted_count"`
}

// Merge removes the duplicate keywords in deleteIDs, keeping keepID. The
// kept id is filtered out of deleteIDs before deletion, so including it by
// mistake never removes the surviving record. Ids that no longer exist are
// skipped silently; DeletedCount reflects rows actually removed.
//
// Merge does not re-point foreign references to deleted keywords; that is
// the caller's responsibility.
func Merge(ctx context.Context, store KeywordDeleter, keepID string, deleteIDs []string) (MergeResult, error) {
	ids := make([]string, 0, len(deleteIDs))
	for _, id := range deleteIDs {
		if id != keepID {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return MergeResult{Kept: keepID, DeletedCount: 0}, nil
	}

	deleted, err := store.DeleteMany(ctx, ids)
	if err != nil {
		return MergeResult{}, err
	}

	return MergeResult{Kept: keepID, DeletedCount: deleted}, nil
}
