package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	"github.com/tendant/portfolio-content/pkg/portfolio/repo/internal/rowcodec"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements portfolio.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// Open creates a pool whose sessions use schema as search_path
func Open(ctx context.Context, dsn, schema string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewWithPool(pool), nil
}

// Close releases the pool when the repository owns one
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Repository) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("constraint %s violated", pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Site content

func (r *Repository) GetSiteContent(ctx context.Context) (*portfolio.SiteContent, error) {
	query, args, err := r.qb().Select("body").From("site_content").Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return nil, err
	}

	var body []byte
	if err := r.db.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &portfolio.NotFoundError{Entity: portfolio.EntityHeroProfile, ID: "singleton"}
		}
		return nil, r.handlePostgresError("get site content", err)
	}

	var content portfolio.SiteContent
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, fmt.Errorf("decode site content: %w", err)
	}
	return &content, nil
}

func (r *Repository) SaveSiteContent(ctx context.Context, content *portfolio.SiteContent) error {
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode site content: %w", err)
	}

	query, args, err := r.qb().Insert("site_content").
		Columns("id", "body", "updated_at").
		Values(1, body, content.UpdatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return r.handlePostgresError("save site content", err)
	}
	return nil
}

// Project operations

var projectColumns = []string{
	"id", "title", "description", "category", "tech_stack", "live_url", "github_url",
	"cover_image", "screenshots", "created_at", "updated_at",
}

func (r *Repository) CreateProject(ctx context.Context, p *portfolio.Project) error {
	cols, err := rowcodec.EncodeProject(p)
	if err != nil {
		return err
	}

	query, args, err := r.qb().Insert("projects").
		Columns(projectColumns...).
		Values(p.ID, p.Title, p.Description, string(p.Category), cols.TechStack, p.LiveURL, p.GithubURL,
			cols.CoverImage, cols.Screenshots, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return r.handlePostgresError("create project", err)
	}
	return nil
}

func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (*portfolio.Project, error) {
	query, args, err := r.qb().Select(projectColumns...).From("projects").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	p, err := scanProject(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: id.String()}
		}
		return nil, r.handlePostgresError("get project", err)
	}
	return p, nil
}

func (r *Repository) UpdateProject(ctx context.Context, p *portfolio.Project) error {
	cols, err := rowcodec.EncodeProject(p)
	if err != nil {
		return err
	}

	query, args, err := r.qb().Update("projects").
		Set("title", p.Title).
		Set("description", p.Description).
		Set("category", string(p.Category)).
		Set("tech_stack", cols.TechStack).
		Set("live_url", p.LiveURL).
		Set("github_url", p.GithubURL).
		Set("cover_image", cols.CoverImage).
		Set("screenshots", cols.Screenshots).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update project", err)
	}
	if tag.RowsAffected() == 0 {
		return &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: p.ID.String()}
	}
	return nil
}

func (r *Repository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	query, args, err := r.qb().Delete("projects").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: id.String()}
	}
	return nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]*portfolio.Project, error) {
	query, args, err := r.qb().Select(projectColumns...).From("projects").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list projects", err)
	}
	defer rows.Close()

	projects := []*portfolio.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list projects", err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*portfolio.Project, error) {
	var p portfolio.Project
	var category string
	var cols rowcodec.ProjectColumns
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &category, &cols.TechStack, &p.LiveURL, &p.GithubURL,
		&cols.CoverImage, &cols.Screenshots, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Category = portfolio.ProjectCategory(category)
	if err := rowcodec.DecodeProject(&p, cols); err != nil {
		return nil, err
	}
	return &p, nil
}

// Testimonial operations

var testimonialColumns = []string{
	"id", "name", "role", "company", "content", "rating", "avatar", "created_at", "updated_at",
}

func (r *Repository) CreateTestimonial(ctx context.Context, t *portfolio.Testimonial) error {
	avatar, err := rowcodec.EncodeRef(t.Avatar)
	if err != nil {
		return err
	}

	query, args, err := r.qb().Insert("testimonials").
		Columns(testimonialColumns...).
		Values(t.ID, t.Name, t.Role, t.Company, t.Content, t.Rating, avatar, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return r.handlePostgresError("create testimonial", err)
	}
	return nil
}

func (r *Repository) GetTestimonial(ctx context.Context, id uuid.UUID) (*portfolio.Testimonial, error) {
	query, args, err := r.qb().Select(testimonialColumns...).From("testimonials").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTestimonial(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: id.String()}
		}
		return nil, r.handlePostgresError("get testimonial", err)
	}
	return t, nil
}

func (r *Repository) UpdateTestimonial(ctx context.Context, t *portfolio.Testimonial) error {
	avatar, err := rowcodec.EncodeRef(t.Avatar)
	if err != nil {
		return err
	}

	query, args, err := r.qb().Update("testimonials").
		Set("name", t.Name).
		Set("role", t.Role).
		Set("company", t.Company).
		Set("content", t.Content).
		Set("rating", t.Rating).
		Set("avatar", avatar).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update testimonial", err)
	}
	if tag.RowsAffected() == 0 {
		return &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: t.ID.String()}
	}
	return nil
}

func (r *Repository) DeleteTestimonial(ctx context.Context, id uuid.UUID) error {
	query, args, err := r.qb().Delete("testimonials").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("delete testimonial", err)
	}
	if tag.RowsAffected() == 0 {
		return &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: id.String()}
	}
	return nil
}

func (r *Repository) ListTestimonials(ctx context.Context) ([]*portfolio.Testimonial, error) {
	query, args, err := r.qb().Select(testimonialColumns...).From("testimonials").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list testimonials", err)
	}
	defer rows.Close()

	testimonials := []*portfolio.Testimonial{}
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan testimonial", err)
		}
		testimonials = append(testimonials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list testimonials", err)
	}
	return testimonials, nil
}

func scanTestimonial(row pgx.Row) (*portfolio.Testimonial, error) {
	var t portfolio.Testimonial
	var avatar []byte
	if err := row.Scan(
		&t.ID, &t.Name, &t.Role, &t.Company, &t.Content, &t.Rating, &avatar, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ref, err := rowcodec.DecodeRef(avatar)
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	t.Avatar = ref
	return &t, nil
}

var _ portfolio.Repository = (*Repository)(nil)
