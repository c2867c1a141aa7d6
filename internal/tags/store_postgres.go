package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tosho/internal/platform/database/schema"
	"github.com/taibuivan/tosho/internal/platform/dberr"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (repository *PostgresRepository) ListTagNames(context context.Context, filename string, userID uuid.UUID) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT t.%s
		FROM %s t
		JOIN %s bt ON bt.%s = t.%s
		WHERE bt.%s = $1 AND bt.%s = $2
		ORDER BY t.%s ASC
	`,
		schema.RefTag.Name,
		schema.RefTag.Table,
		schema.RefBookTag.Table, schema.RefBookTag.TagID, schema.RefTag.ID,
		schema.RefBookTag.BookFilename, schema.RefBookTag.UserID,
		schema.RefTag.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, filename, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_book_tags")
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dberr.Wrap(err, "scan_book_tag")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (repository *PostgresRepository) FindBookmark(context context.Context, userID uuid.UUID, filename string) (*Bookmark, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
	`,
		schema.RefBookmark.UserID, schema.RefBookmark.BookFilename, schema.RefBookmark.ChapterIndex,
		schema.RefBookmark.Position, schema.RefBookmark.Status, schema.RefBookmark.LastRead,
		schema.RefBookmark.Table,
		schema.RefBookmark.UserID, schema.RefBookmark.BookFilename,
	)

	bookmark := &Bookmark{}
	err := repository.pool.QueryRow(context, query, userID, filename).Scan(
		&bookmark.UserID, &bookmark.BookFilename, &bookmark.ChapterIndex,
		&bookmark.Position, &bookmark.Status, &bookmark.LastRead,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Absence is a real state here: it reads as "Unread, start of
		// book", so it must not surface as a not-found failure.
		return nil, nil
	}
	if err != nil {
		return nil, dberr.Wrap(err, "find_bookmark")
	}
	return bookmark, nil
}

func (repository *PostgresRepository) UpsertBookmark(context context.Context, bookmark *Bookmark) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = NOW()
	`,
		schema.RefBookmark.Table,
		schema.RefBookmark.UserID, schema.RefBookmark.BookFilename, schema.RefBookmark.ChapterIndex,
		schema.RefBookmark.Position, schema.RefBookmark.Status, schema.RefBookmark.LastRead,
		schema.RefBookmark.UserID, schema.RefBookmark.BookFilename,
		schema.RefBookmark.ChapterIndex, schema.RefBookmark.ChapterIndex,
		schema.RefBookmark.Position, schema.RefBookmark.Position,
		schema.RefBookmark.Status, schema.RefBookmark.Status,
		schema.RefBookmark.LastRead,
	)

	_, err := repository.pool.Exec(context, query,
		bookmark.UserID, bookmark.BookFilename, bookmark.ChapterIndex, bookmark.Position, bookmark.Status)
	if err != nil {
		return dberr.Wrap(err, "upsert_bookmark")
	}
	return nil
}

func (repository *PostgresRepository) ReplaceBookTags(context context.Context, filename string, userID uuid.UUID, names []string, status *Status) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}

	// Defer Transaction State Reversal
	// Ensures that uncommitted network handles are safely reclaimed if application logic panics.
	defer transaction.Rollback(context)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.RefBookTag.Table, schema.RefBookTag.BookFilename, schema.RefBookTag.UserID)
	if _, err := transaction.Exec(context, deleteQuery, filename, userID); err != nil {
		return dberr.Wrap(err, "clear_book_tags")
	}

	upsertTag := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		VALUES ($1, $2)
		ON CONFLICT (%s, %s) DO UPDATE SET %s = EXCLUDED.%s
		RETURNING %s
	`,
		schema.RefTag.Table, schema.RefTag.Name, schema.RefTag.UserID,
		schema.RefTag.Name, schema.RefTag.UserID,
		schema.RefTag.Name, schema.RefTag.Name,
		schema.RefTag.ID,
	)
	attach := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		schema.RefBookTag.Table, schema.RefBookTag.BookFilename, schema.RefBookTag.TagID, schema.RefBookTag.UserID)

	for _, name := range names {
		var tagID int
		if err := transaction.QueryRow(context, upsertTag, name, userID).Scan(&tagID); err != nil {
			return dberr.Wrap(err, "upsert_tag")
		}
		if _, err := transaction.Exec(context, attach, filename, tagID, userID); err != nil {
			return dberr.Wrap(err, "attach_book_tag")
		}
	}

	if status != nil {
		bookmarkQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, 0, 0, $3, NOW())
			ON CONFLICT (%s, %s) DO UPDATE SET %s = EXCLUDED.%s, %s = NOW()
		`,
			schema.RefBookmark.Table,
			schema.RefBookmark.UserID, schema.RefBookmark.BookFilename, schema.RefBookmark.ChapterIndex,
			schema.RefBookmark.Position, schema.RefBookmark.Status, schema.RefBookmark.LastRead,
			schema.RefBookmark.UserID, schema.RefBookmark.BookFilename,
			schema.RefBookmark.Status, schema.RefBookmark.Status,
			schema.RefBookmark.LastRead,
		)
		if _, err := transaction.Exec(context, bookmarkQuery, userID, filename, *status); err != nil {
			return dberr.Wrap(err, "update_bookmark_status")
		}
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit tag replacement: %w", err)
	}
	return nil
}
