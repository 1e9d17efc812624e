package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:generate mockgen -source=postgres_repo.go -destination=mock_repository.go -package=catalog

type Repository interface {
	Create(ctx context.Context, b *Book) error
	List(ctx context.Context, q SearchQuery) ([]Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (Book, error)
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const bookColumns = `id, title, author, year, page_count, description, language, pdf_path, cover_path, source, created_at`

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Source == "" {
		b.Source = "local"
	}

	const q = `
		INSERT INTO books (id, title, author, year, page_count, description, language, pdf_path, cover_path, source)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, q,
		b.ID, b.Title, b.Author, b.Year, b.PageCount, b.Description, b.Language, b.PDFPath, b.CoverPath, b.Source,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, q SearchQuery) ([]Book, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if term := strings.TrimSpace(q.Q); term != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d)", argn, argn))
		args = append(args, "%"+escapeLike(term)+"%")
		argn++
	}
	if author := strings.TrimSpace(q.Author); author != "" {
		clauses = append(clauses, fmt.Sprintf("author ILIKE $%d", argn))
		args = append(args, "%"+escapeLike(author)+"%")
		argn++
	}
	if lang := strings.TrimSpace(q.Language); lang != "" {
		clauses = append(clauses, fmt.Sprintf("language = $%d", argn))
		args = append(args, lang)
		argn++
	}

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
		SELECT %s
		FROM books
		WHERE %s
		ORDER BY title ASC
		LIMIT $%d`, bookColumns, strings.Join(clauses, " AND "), argn)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (Book, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	b, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	return b, err
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	var description, language, pdf, cover *string
	if err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Year, &b.PageCount, &description,
		&language, &pdf, &cover, &b.Source, &b.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, err
		}
		return Book{}, fmt.Errorf("scan book: %w", err)
	}
	b.Description = deref(description)
	b.Language = deref(language)
	b.PDFPath = deref(pdf)
	b.CoverPath = deref(cover)
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
