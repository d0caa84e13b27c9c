package boundary

import (
	"github.com/EleDiaz/LibSql.Bindings/internal/engine"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
)

// NextBatch returns the result of the next statement of a batch. more is false once
// the batch is exhausted. rows is the null handle for statements without a result set.
// Codes: 2 the statement failed, reported again by every later call.
func (b *Bridge) NextBatch(batch handle.Token) (rows handle.Token, more bool, err error) {
	bt, err := handle.Lookup[*engine.Batch](b.handles, batch, handle.KindBatchRows)
	if err != nil {
		return 0, false, badHandle(err)
	}
	r, ok, err := bt.Next()
	if err != nil {
		return 0, false, fail(2, "Error executing statement: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	if r == nil {
		return 0, true, nil
	}
	return b.handles.Insert(handle.KindRows, r), true, nil
}

// FreeBatch releases batch and the results it still holds.
func (b *Bridge) FreeBatch(batch handle.Token) error {
	return release(b, batch, handle.KindBatchRows, func(bt *engine.Batch) { bt.Close() })
}
