package engine

import (
	"context"
	"fmt"
	"log"
)

// Batch holds the results of a script run statement by statement. Results are collected
// when the batch runs, Next hands them out in statement order.
type Batch struct {
	results []*Rows // nil for statements without a result set
	pos     int
	err     error
}

// ExecuteBatch runs every statement of script in order. Execution stops at the first
// failing statement, its error is reported by Next after the preceding results.
func (c *Conn) ExecuteBatch(ctx context.Context, script string) *Batch {
	b := &Batch{}
	for i, query := range SplitStatements(script) {
		rows, err := c.batchStatement(ctx, query)
		if err != nil {
			b.err = fmt.Errorf("statement %d: %w", i, err)
			log.Printf("[DEBUG] batch stopped at statement %d of script, %v", i, err)
			break
		}
		b.results = append(b.results, rows)
	}
	return b
}

func (c *Conn) batchStatement(ctx context.Context, query string) (*Rows, error) {
	src, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	cols, buf, err := collect(src)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}
	return bufferedRows(cols, buf), nil
}

// Next returns the result of the next statement. ok is false once every result was
// handed out. rows is nil for statements without a result set. After a failed statement
// Next keeps returning its error.
func (b *Batch) Next() (rows *Rows, ok bool, err error) {
	if b.pos < len(b.results) {
		rows = b.results[b.pos]
		b.results[b.pos] = nil
		b.pos++
		return rows, true, nil
	}
	if b.err != nil {
		return nil, false, b.err
	}
	return nil, false, nil
}

// Len returns the number of statements that ran successfully.
func (b *Batch) Len() int { return len(b.results) }

// Err returns the error of the failed statement, if any.
func (b *Batch) Err() error { return b.err }

// Close drops results that were never handed out, Next reports the batch exhausted
// afterwards.
func (b *Batch) Close() {
	for i := b.pos; i < len(b.results); i++ {
		if r := b.results[i]; r != nil {
			_ = r.Close()
			b.results[i] = nil
		}
	}
	b.pos = len(b.results)
}
