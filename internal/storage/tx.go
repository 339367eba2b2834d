package storage

import (
	"context"
	"errors"
	"fmt"
)

var errNoTx = errors.New("storage returned no transaction")

// RunInTx runs fn inside one transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including when fn panics; it is
// finished exactly once either way.
func RunInTx(ctx context.Context, s Storage, fn func(tx Tx) error) (err error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if tx == nil {
		return errNoTx
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
