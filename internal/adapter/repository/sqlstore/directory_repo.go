package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/fundledger/internal/domain"
)

// directory implements domain.EntityDirectory over the users, contacts and projects tables.
// Those tables belong to the chat layer; the ledger only reads them.
type directory struct {
	db *DB
}

// NewEntityDirectory creates a new entity directory
func NewEntityDirectory(db *DB) domain.EntityDirectory {
	return &directory{db: db}
}

// UserExists reports whether a user with id exists
func (d *directory) UserExists(ctx context.Context, id int64) (bool, error) {
	return d.exists(ctx, "users", id)
}

// ContactExists reports whether a contact with id exists
func (d *directory) ContactExists(ctx context.Context, id int64) (bool, error) {
	return d.exists(ctx, "contacts", id)
}

// ProjectExists reports whether a project with id exists
func (d *directory) ProjectExists(ctx context.Context, id int64) (bool, error) {
	return d.exists(ctx, "projects", id)
}

// UserName returns the display name of a user
func (d *directory) UserName(ctx context.Context, id int64) (string, bool, error) {
	return d.lookup(ctx, `SELECT name FROM users WHERE id = ?`, id)
}

// ProjectName returns the name of a project
func (d *directory) ProjectName(ctx context.Context, id int64) (string, bool, error) {
	return d.lookup(ctx, `SELECT name FROM projects WHERE id = ?`, id)
}

// ContactHandle returns the chat handle of a contact
func (d *directory) ContactHandle(ctx context.Context, id int64) (string, bool, error) {
	return d.lookup(ctx, `SELECT handle FROM contacts WHERE id = ?`, id)
}

func (d *directory) exists(ctx context.Context, table string, id int64) (bool, error) {
	var one int
	err := d.db.queryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", table, id, err)
	}
	return true, nil
}

func (d *directory) lookup(ctx context.Context, query string, id int64) (string, bool, error) {
	var value string
	err := d.db.queryRow(ctx, query, id).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up entity %d: %w", id, err)
	}
	return value, true, nil
}
