package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	errDuplicateEntry = 1062
	errDataTruncated  = 1265
	errOutOfRange     = 1264
	errIncorrectValue = 1366
	errDataTooLong    = 1406
)

// TxRunner runs a function inside a single database transaction, committing
// when it returns nil and rolling back otherwise.
type TxRunner struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{
		db:   db,
		opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after a successful commit returns sql.ErrTxDone and is ignored.
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DuplicateKey reports whether err is a unique-constraint violation and, if
// so, the server message naming the violated key.
func DuplicateKey(err error) (string, bool) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry {
		return mysqlErr.Message, true
	}
	return "", false
}

func IsDuplicateOf(err error, key string) bool {
	msg, ok := DuplicateKey(err)
	return ok && strings.Contains(msg, key)
}

// RejectedColumn reports whether err is a strict-mode rejection of a value
// that does not fit its column, and names that column when the server does.
func RejectedColumn(err error) (string, bool) {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return "", false
	}
	switch mysqlErr.Number {
	case errOutOfRange, errDataTooLong, errDataTruncated, errIncorrectValue:
	default:
		return "", false
	}

	_, rest, found := strings.Cut(mysqlErr.Message, "column '")
	if !found {
		return "", true
	}
	column, _, _ := strings.Cut(rest, "'")
	return column, true
}
