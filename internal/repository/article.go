package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sayaka/teamboard/internal/domain"
)

const articleColumns = `id, org_id, author_id, title, body, tags, published, published_at,
	created_at, updated_at`

// ArticleRepository handles knowledge-base article data access.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts an article.
func (r *ArticleRepository) Create(ctx context.Context, a domain.Article) (*domain.Article, error) {
	var result domain.Article
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO articles (org_id, author_id, title, body, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+articleColumns,
		a.OrgID, a.AuthorID, a.Title, a.Body, a.Tags,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("create article", err)
	}
	return &result, nil
}

// FindByID retrieves an article by id.
func (r *ArticleRepository) FindByID(ctx context.Context, id int64) (*domain.Article, error) {
	var a domain.Article
	err := r.db.GetContext(ctx, &a,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
	if err != nil {
		return nil, wrap("find article", err)
	}
	return &a, nil
}

// ListForOrg lists an organization's articles, optionally published only.
func (r *ArticleRepository) ListForOrg(ctx context.Context, orgID int64, publishedOnly bool) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE org_id = $1`
	if publishedOnly {
		query += ` AND published = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	var articles []domain.Article
	if err := r.db.SelectContext(ctx, &articles, query, orgID); err != nil {
		return nil, wrap("list articles", err)
	}
	return articles, nil
}

// Update overwrites the mutable fields of an article.
func (r *ArticleRepository) Update(ctx context.Context, a domain.Article) (*domain.Article, error) {
	var result domain.Article
	err := r.db.QueryRowxContext(ctx,
		`UPDATE articles
		 SET title = $2, body = $3, tags = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+articleColumns,
		a.ID, a.Title, a.Body, a.Tags,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("update article", err)
	}
	return &result, nil
}

// Publish marks an article published. Publishing twice is a no-op that
// returns the stored row.
func (r *ArticleRepository) Publish(ctx context.Context, id int64, at time.Time) (*domain.Article, error) {
	var result domain.Article
	err := r.db.QueryRowxContext(ctx,
		`UPDATE articles
		 SET published = TRUE,
		     published_at = COALESCE(published_at, $2),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+articleColumns, id, at,
	).StructScan(&result)
	if err != nil {
		return nil, wrap("publish article", err)
	}
	return &result, nil
}

// Delete removes an article.
func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return wrap("delete article", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap("delete article", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
