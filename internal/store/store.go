package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/arawak/toolshelf/internal/apperr"
	"github.com/arawak/toolshelf/internal/tagname"
)

var ErrNotFound = errors.New("not found")
var ErrInvalidName = apperr.New(apperr.KindValidation, "Tag name is required.")

type Store struct {
	db *sqlx.DB

	// beforeInsert runs between the existence check and the insert. Tests use
	// it to lose the race on purpose.
	beforeInsert func(name string)
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListTags returns every canonical tag name in ascending order.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := s.db.SelectContext(ctx, &names, "SELECT name FROM tag ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return names, nil
}

// CreateTag stores raw under its canonical name. Creating a name that already
// exists is not an error: the result's Status reports whether the tag was
// inserted, found, or inserted concurrently by someone else.
func (s *Store) CreateTag(ctx context.Context, raw string) (CreateResult, error) {
	name := tagname.Normalize(raw)
	if name == "" {
		return CreateResult{}, ErrInvalidName
	}

	existing, err := s.getTagByName(ctx, name)
	if err == nil {
		return CreateResult{Tag: *existing, Status: StatusExisted}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return CreateResult{}, fmt.Errorf("lookup tag %q: %w", name, err)
	}

	if s.beforeInsert != nil {
		s.beforeInsert(name)
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO tag (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return CreateResult{Tag: Tag{Name: name}, Status: StatusConflict}, nil
		}
		return CreateResult{}, fmt.Errorf("insert tag %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return CreateResult{}, fmt.Errorf("insert tag %q: %w", name, err)
	}
	return CreateResult{Tag: Tag{ID: id, Name: name}, Status: StatusCreated}, nil
}

func (s *Store) getTagByName(ctx context.Context, name string) (*Tag, error) {
	var t Tag
	err := s.db.GetContext(ctx, &t, "SELECT id, name FROM tag WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
