// Package postgres implements the catalog, ledger, and record stores over
// PostgreSQL with sqlx. Repositories take a Querier so the same code runs
// against the pool or against a transaction.
package postgres

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Querier is satisfied by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
}

// foreign_key_violation
const pqFKViolation = "23503"

func isFKViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqFKViolation
}
