package database

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotSupported is returned when an optional method is not supported by the Store implementation.
var ErrNotSupported = errors.New("not supported")

// A StoreController wraps a Store and exposes optional methods that a Store may implement in
// addition to the core interface.
type StoreController struct {
	Store
}

// NewStoreController returns a new StoreController that wraps the given Store.
//
// If the Store implements the following optional methods, the StoreController will call them as
// appropriate:
//
//   - TableExists(context.Context, DBTxConn) (bool, error)
//
// If the Store does not implement a method, it returns [ErrNotSupported].
func NewStoreController(store Store) *StoreController {
	return &StoreController{Store: store}
}

// TableExists reports whether the version table exists. Callers fall back to querying the table
// directly when it returns [ErrNotSupported].
func (c *StoreController) TableExists(ctx context.Context, db *sql.Conn) (bool, error) {
	if t, ok := c.Store.(interface {
		TableExists(ctx context.Context, db *sql.Conn) (bool, error)
	}); ok {
		return t.TableExists(ctx, db)
	}
	return false, ErrNotSupported
}
