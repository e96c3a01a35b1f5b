package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	drv "github.com/go-sql-driver/mysql"

	"property_listings/internal/domain"
)

// MySQL error number for a duplicate primary key.
const errDupEntry = 1062

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func valJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repo) Insert(ctx context.Context, d domain.PropertyDocument) error {
	args, err := documentArgs(d)
	if err != nil {
		return err
	}
	// insert order: id, ..., created_at, updated_at, published_at
	row := append([]any{d.ID}, args[:len(args)-2]...)
	row = append(row, d.CreatedAt.UTC(), d.UpdatedAt.UTC(), valTime(d.PublishedAt))
	if _, err := r.db.ExecContext(ctx, insertDocumentSQL, row...); err != nil {
		var me *drv.MySQLError
		if errors.As(err, &me) && me.Number == errDupEntry {
			return fmt.Errorf("%w: property %q already exists", domain.ErrConflict, d.ID)
		}
		return err
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (domain.PropertyDocument, error) {
	return scanDocument(r.db.QueryRowContext(ctx, getDocumentSQL, id), id)
}

func (r *Repo) List(ctx context.Context) ([]domain.PropertyDocument, error) {
	rows, err := r.db.QueryContext(ctx, listDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PropertyDocument
	for rows.Next() {
		d, err := scanDocument(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds a row lock for the duration of fn and writes the whole row
// in one statement, so concurrent readers see either the old or the new record.
func (r *Repo) Update(ctx context.Context, id string, fn func(d *domain.PropertyDocument) error) (domain.PropertyDocument, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	defer func() { _ = tx.Rollback() }()

	d, err := scanDocument(tx.QueryRowContext(ctx, getDocumentForUpdateSQL, id), id)
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	if err := fn(&d); err != nil {
		return domain.PropertyDocument{}, err
	}

	args, err := documentArgs(d)
	if err != nil {
		return domain.PropertyDocument{}, err
	}
	if _, err := tx.ExecContext(ctx, updateDocumentSQL, append(args, id)...); err != nil {
		return domain.PropertyDocument{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.PropertyDocument{}, err
	}
	return d, nil
}

// documentArgs returns the column values in UPDATE order (without the id).
func documentArgs(d domain.PropertyDocument) ([]any, error) {
	langs, err := valJSON(d.ListingLanguages)
	if err != nil {
		return nil, err
	}
	initial, err := valJSON(d.InitialName)
	if err != nil {
		return nil, err
	}
	draft, err := valJSON(d.Draft)
	if err != nil {
		return nil, err
	}
	var published any
	if d.Published != nil {
		if published, err = valJSON(d.Published); err != nil {
			return nil, err
		}
	}
	return []any{
		string(d.Status),
		d.Archived,
		d.IsPublished,
		d.Version,
		d.DraftRevision,
		langs,
		initial,
		draft,
		published,
		d.UpdatedAt.UTC(),
		valTime(d.PublishedAt),
	}, nil
}

func scanDocument(row scanner, id string) (domain.PropertyDocument, error) {
	var d domain.PropertyDocument
	var status string
	var langsJSON, initialJSON, draftJSON, publishedJSON []byte
	var publishedAt sql.NullTime

	if err := row.Scan(
		&d.ID,
		&status,
		&d.Archived,
		&d.IsPublished,
		&d.Version,
		&d.DraftRevision,
		&langsJSON,
		&initialJSON,
		&draftJSON,
		&publishedJSON,
		&d.CreatedAt,
		&d.UpdatedAt,
		&publishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PropertyDocument{}, fmt.Errorf("%w: property %q", domain.ErrNotFound, id)
		}
		return domain.PropertyDocument{}, err
	}

	d.Status = domain.PropertyStatus(status)
	if err := json.Unmarshal(langsJSON, &d.ListingLanguages); err != nil {
		return domain.PropertyDocument{}, fmt.Errorf("decode listing_languages %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(initialJSON, &d.InitialName); err != nil {
		return domain.PropertyDocument{}, fmt.Errorf("decode initial_name %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(draftJSON, &d.Draft); err != nil {
		return domain.PropertyDocument{}, fmt.Errorf("decode draft %s: %w", d.ID, err)
	}
	if len(publishedJSON) > 0 {
		var pub domain.Content
		if err := json.Unmarshal(publishedJSON, &pub); err != nil {
			return domain.PropertyDocument{}, fmt.Errorf("decode published %s: %w", d.ID, err)
		}
		d.Published = &pub
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		d.PublishedAt = &t
	}
	return d, nil
}
