// Package pgcases looks up process numbers in Postgres.
package pgcases

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juslabs/casegate/cases"
)

// Store reads from the cases schema.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

// NewStore wraps a pgx pool. schema defaults to "cases".
func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "cases"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) table() string { return s.schema + ".processes" }

// ProcessNumber implements cases.Store.
func (s *Store) ProcessNumber(ctx context.Context, protocol string) (string, error) {
	var number string
	err := s.pg.QueryRow(ctx, `SELECT process_number FROM `+s.table()+` WHERE protocol = $1`, protocol).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", cases.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return number, nil
}
