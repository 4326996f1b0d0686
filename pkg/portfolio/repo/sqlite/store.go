// Package sqlite provides a SQLite-backed portfolio repository for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	"github.com/tendant/portfolio-content/pkg/portfolio/repo/internal/rowcodec"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists portfolio entities in SQLite
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applyMigrations(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func (s *Store) wrap(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: duplicate entry", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullText stores empty JSON as NULL
func nullText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func textBytes(ns sql.NullString) []byte {
	if !ns.Valid {
		return nil
	}
	return []byte(ns.String)
}

// Site content

func (s *Store) GetSiteContent(ctx context.Context) (*portfolio.SiteContent, error) {
	query, args, err := s.qb().Select("body").From("site_content").Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return nil, err
	}

	var body string
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &portfolio.NotFoundError{Entity: portfolio.EntityHeroProfile, ID: "singleton"}
		}
		return nil, s.wrap("get site content", err)
	}

	var content portfolio.SiteContent
	if err := json.Unmarshal([]byte(body), &content); err != nil {
		return nil, fmt.Errorf("decode site content: %w", err)
	}
	return &content, nil
}

func (s *Store) SaveSiteContent(ctx context.Context, content *portfolio.SiteContent) error {
	body, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode site content: %w", err)
	}

	query, args, err := s.qb().Insert("site_content").
		Columns("id", "body", "updated_at").
		Values(1, string(body), toMillis(content.UpdatedAt)).
		Suffix("ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return s.wrap("save site content", err)
	}
	return nil
}

// Project operations

var projectColumns = []string{
	"id", "title", "description", "category", "tech_stack", "live_url", "github_url",
	"cover_image", "screenshots", "created_at", "updated_at",
}

func (s *Store) CreateProject(ctx context.Context, p *portfolio.Project) error {
	cols, err := rowcodec.EncodeProject(p)
	if err != nil {
		return err
	}

	query, args, err := s.qb().Insert("projects").
		Columns(projectColumns...).
		Values(p.ID.String(), p.Title, p.Description, string(p.Category), string(cols.TechStack), p.LiveURL, p.GithubURL,
			nullText(cols.CoverImage), string(cols.Screenshots), toMillis(p.CreatedAt), toMillis(p.UpdatedAt)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return s.wrap("create project", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*portfolio.Project, error) {
	query, args, err := s.qb().Select(projectColumns...).From("projects").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}

	p, err := scanProject(s.sqlDB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: id.String()}
		}
		return nil, s.wrap("get project", err)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *portfolio.Project) error {
	cols, err := rowcodec.EncodeProject(p)
	if err != nil {
		return err
	}

	query, args, err := s.qb().Update("projects").
		Set("title", p.Title).
		Set("description", p.Description).
		Set("category", string(p.Category)).
		Set("tech_stack", string(cols.TechStack)).
		Set("live_url", p.LiveURL).
		Set("github_url", p.GithubURL).
		Set("cover_image", nullText(cols.CoverImage)).
		Set("screenshots", string(cols.Screenshots)).
		Set("updated_at", toMillis(p.UpdatedAt)).
		Where(sq.Eq{"id": p.ID.String()}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execAffecting(ctx, "update project", query, args, &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: p.ID.String()})
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.qb().Delete("projects").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return err
	}
	return s.execAffecting(ctx, "delete project", query, args, &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: id.String()})
}

func (s *Store) ListProjects(ctx context.Context) ([]*portfolio.Project, error) {
	query, args, err := s.qb().Select(projectColumns...).From("projects").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list projects", err)
	}
	defer rows.Close()

	projects := []*portfolio.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, s.wrap("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list projects", err)
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*portfolio.Project, error) {
	var (
		p                      portfolio.Project
		id, category           string
		techStack, screenshots string
		cover                  sql.NullString
		createdAt, updatedAt   int64
	)
	if err := row.Scan(
		&id, &p.Title, &p.Description, &category, &techStack, &p.LiveURL, &p.GithubURL,
		&cover, &screenshots, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	p.ID = parsed
	p.Category = portfolio.ProjectCategory(category)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)

	err = rowcodec.DecodeProject(&p, rowcodec.ProjectColumns{
		TechStack:   []byte(techStack),
		CoverImage:  textBytes(cover),
		Screenshots: []byte(screenshots),
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Testimonial operations

var testimonialColumns = []string{
	"id", "name", "role", "company", "content", "rating", "avatar", "created_at", "updated_at",
}

func (s *Store) CreateTestimonial(ctx context.Context, t *portfolio.Testimonial) error {
	avatar, err := rowcodec.EncodeRef(t.Avatar)
	if err != nil {
		return err
	}

	query, args, err := s.qb().Insert("testimonials").
		Columns(testimonialColumns...).
		Values(t.ID.String(), t.Name, t.Role, t.Company, t.Content, t.Rating, nullText(avatar),
			toMillis(t.CreatedAt), toMillis(t.UpdatedAt)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return s.wrap("create testimonial", err)
	}
	return nil
}

func (s *Store) GetTestimonial(ctx context.Context, id uuid.UUID) (*portfolio.Testimonial, error) {
	query, args, err := s.qb().Select(testimonialColumns...).From("testimonials").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTestimonial(s.sqlDB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: id.String()}
		}
		return nil, s.wrap("get testimonial", err)
	}
	return t, nil
}

func (s *Store) UpdateTestimonial(ctx context.Context, t *portfolio.Testimonial) error {
	avatar, err := rowcodec.EncodeRef(t.Avatar)
	if err != nil {
		return err
	}

	query, args, err := s.qb().Update("testimonials").
		Set("name", t.Name).
		Set("role", t.Role).
		Set("company", t.Company).
		Set("content", t.Content).
		Set("rating", t.Rating).
		Set("avatar", nullText(avatar)).
		Set("updated_at", toMillis(t.UpdatedAt)).
		Where(sq.Eq{"id": t.ID.String()}).
		ToSql()
	if err != nil {
		return err
	}
	return s.execAffecting(ctx, "update testimonial", query, args, &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: t.ID.String()})
}

func (s *Store) DeleteTestimonial(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.qb().Delete("testimonials").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return err
	}
	return s.execAffecting(ctx, "delete testimonial", query, args, &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: id.String()})
}

func (s *Store) ListTestimonials(ctx context.Context) ([]*portfolio.Testimonial, error) {
	query, args, err := s.qb().Select(testimonialColumns...).From("testimonials").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list testimonials", err)
	}
	defer rows.Close()

	testimonials := []*portfolio.Testimonial{}
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, s.wrap("scan testimonial", err)
		}
		testimonials = append(testimonials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list testimonials", err)
	}
	return testimonials, nil
}

func scanTestimonial(row rowScanner) (*portfolio.Testimonial, error) {
	var (
		t                    portfolio.Testimonial
		id                   string
		avatar               sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &t.Name, &t.Role, &t.Company, &t.Content, &t.Rating, &avatar, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse testimonial id: %w", err)
	}
	t.ID = parsed
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)

	ref, err := rowcodec.DecodeRef(textBytes(avatar))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	t.Avatar = ref
	return &t, nil
}

func (s *Store) execAffecting(ctx context.Context, op, query string, args []any, notFound error) error {
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return s.wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ portfolio.Repository = (*Store)(nil)
