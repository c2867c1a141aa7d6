package book

import (
	"context"
	"fmt"

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

func bookColumns() string {
	return fmt.Sprintf("b.%s, b.%s, b.%s, b.%s, b.%s, b.%s, b.%s, b.%s",
		schema.RefBook.Filename, schema.RefBook.Title, schema.RefBook.Author, schema.RefBook.Genre,
		schema.RefBook.AccessLevel, schema.RefBook.CoverPath, schema.RefBook.CreatedAt, schema.RefBook.UploadedBy)
}

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	book := &Book{}
	err := row.Scan(&book.Filename, &book.Title, &book.Author, &book.Genre,
		&book.AccessLevel, &book.CoverPath, &book.CreatedAt, &book.UploadedBy)
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (repository *PostgresRepository) ListBooks(context context.Context, filter Filter, viewer Viewer, limit, offset int) ([]Book, int, error) {
	composed := buildCatalogQuery(filter, viewer)
	if composed.Empty {
		return []Book{}, 0, nil
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s b %s %s`,
		schema.RefBook.Table, composed.Join, composed.Where)

	total := 0
	if err := repository.pool.QueryRow(context, countQuery, composed.Args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_books")
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM %s b %s %s %s LIMIT %d OFFSET %d`,
		bookColumns(), schema.RefBook.Table, composed.Join, composed.Where, composed.Order, limit, offset)

	rows, err := repository.pool.Query(context, listQuery, composed.Args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_books")
	}
	defer rows.Close()

	books := make([]Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_book")
		}
		books = append(books, *book)
	}
	return books, total, rows.Err()
}

func (repository *PostgresRepository) GetBook(context context.Context, filename string) (*Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s b WHERE b.%s = $1`,
		bookColumns(), schema.RefBook.Table, schema.RefBook.Filename)

	book, err := scanBook(repository.pool.QueryRow(context, query, filename))
	if err != nil {
		return nil, dberr.Wrap(err, "get_book")
	}
	return book, nil
}

func (repository *PostgresRepository) CreateBook(context context.Context, book *Book) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		schema.RefBook.Table,
		schema.RefBook.Filename, schema.RefBook.Title, schema.RefBook.Author, schema.RefBook.Genre,
		schema.RefBook.AccessLevel, schema.RefBook.CoverPath, schema.RefBook.UploadedBy,
	)

	_, err := repository.pool.Exec(context, query,
		book.Filename, book.Title, book.Author, book.Genre,
		book.AccessLevel, book.CoverPath, book.UploadedBy)
	if err != nil {
		return dberr.Wrap(err, "create_book")
	}
	return nil
}

func (repository *PostgresRepository) UpdateBook(context context.Context, book *Book) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6
		WHERE %s = $1
	`,
		schema.RefBook.Table,
		schema.RefBook.Title, schema.RefBook.Author, schema.RefBook.Genre,
		schema.RefBook.AccessLevel, schema.RefBook.CoverPath,
		schema.RefBook.Filename,
	)

	result, err := repository.pool.Exec(context, query,
		book.Filename, book.Title, book.Author, book.Genre, book.AccessLevel, book.CoverPath)
	if err != nil {
		return dberr.Wrap(err, "update_book")
	}
	if result.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "update_book")
	}
	return nil
}

func (repository *PostgresRepository) DeleteBook(context context.Context, filename string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.RefBook.Table, schema.RefBook.Filename)

	if _, err := repository.pool.Exec(context, query, filename); err != nil {
		return dberr.Wrap(err, "delete_book")
	}
	return nil
}

func (repository *PostgresRepository) ListFilenames(context context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		schema.RefBook.Filename, schema.RefBook.Table, schema.RefBook.Filename)

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_book_filenames")
	}
	defer rows.Close()

	filenames := make([]string, 0)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, dberr.Wrap(err, "scan_book_filename")
		}
		filenames = append(filenames, filename)
	}
	return filenames, rows.Err()
}
