package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when a strategy id does not exist.
var ErrNotFound = errors.New("strategy not found")

const queryStrategyByID = `SELECT ` + strategyColumns + ` FROM strategies WHERE id = $1`

// SetIDFunc replaces the report id generator.
func (s *Store) SetIDFunc(f func() uuid.UUID) {
	s.newID = f
}

// Get reads a single strategy by id so tests can inspect stored rows.
func (s *Store) Get(ctx context.Context, id int64) (Strategy, error) {
	rows, err := s.db.QueryContext(ctx, queryStrategyByID, id)
	if err != nil {
		return Strategy{}, fmt.Errorf("get strategy %d: %w", id, err)
	}
	list, err := scanStrategies(rows)
	if err != nil {
		return Strategy{}, err
	}
	if len(list) == 0 {
		return Strategy{}, ErrNotFound
	}
	return list[0], nil
}
