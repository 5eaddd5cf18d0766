package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// ArticleStore defines the knowledge-base data access interface consumed by
// ArticleService.
type ArticleStore interface {
	Create(ctx context.Context, a domain.Article) (*domain.Article, error)
	FindByID(ctx context.Context, id int64) (*domain.Article, error)
	ListForOrg(ctx context.Context, orgID int64, publishedOnly bool) ([]domain.Article, error)
	Update(ctx context.Context, a domain.Article) (*domain.Article, error)
	Publish(ctx context.Context, id int64, at time.Time) (*domain.Article, error)
	Delete(ctx context.Context, id int64) error
}

// ArticleService handles knowledge-base articles.
type ArticleService struct {
	store    ArticleStore
	members  MembershipSource
	notifier Dispatcher
	audit    *AuditRecorder
	now      func() time.Time
}

// NewArticleService creates a new ArticleService.
func NewArticleService(store ArticleStore, members MembershipSource, notifier Dispatcher, audit *AuditRecorder) *ArticleService {
	return &ArticleService{
		store:    store,
		members:  members,
		notifier: notifier,
		audit:    audit,
		now:      time.Now,
	}
}

// ArticleInput is the caller-supplied content of an article.
type ArticleInput struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Tags  domain.StringList `json:"tags"`
}

// Create creates an unpublished article.
func (s *ArticleService) Create(ctx context.Context, orgID, actorID int64, in ArticleInput) (*domain.Article, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "is required"}
	}

	article, err := s.store.Create(ctx, domain.Article{
		OrgID:    orgID,
		AuthorID: actorID,
		Title:    in.Title,
		Body:     in.Body,
		Tags:     in.Tags,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(orgID, actorID, "article.created", "article", article.ID, nil)
	return article, nil
}

// Get returns an article the actor may see.
func (s *ArticleService) Get(ctx context.Context, articleID, actorID int64) (*domain.Article, error) {
	article, err := s.store.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.members, article.OrgID, actorID); err != nil {
		return nil, err
	}
	return article, nil
}

// List lists an organization's articles.
func (s *ArticleService) List(ctx context.Context, orgID, actorID int64, publishedOnly bool) ([]domain.Article, error) {
	if _, err := requireMember(ctx, s.members, orgID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListForOrg(ctx, orgID, publishedOnly)
}

// Update overwrites an article's content. Only the author or a manager may
// edit.
func (s *ArticleService) Update(ctx context.Context, articleID, actorID int64, in ArticleInput) (*domain.Article, error) {
	article, err := s.store.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	m, err := requireMember(ctx, s.members, article.OrgID, actorID)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != actorID && !m.Role.CanManage() {
		return nil, domain.ErrForbidden
	}

	if in.Title != "" {
		article.Title = in.Title
	}
	if in.Body != "" {
		article.Body = in.Body
	}
	if in.Tags != nil {
		article.Tags = in.Tags
	}
	return s.store.Update(ctx, *article)
}

// Publish marks an article published and notifies the other org members.
// Publishing an already-published article changes nothing and notifies
// nobody.
func (s *ArticleService) Publish(ctx context.Context, articleID, actorID int64) (*domain.Article, error) {
	article, err := s.store.FindByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	m, err := requireMember(ctx, s.members, article.OrgID, actorID)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != actorID && !m.Role.CanManage() {
		return nil, domain.ErrForbidden
	}

	alreadyPublished := article.Published

	published, err := s.store.Publish(ctx, articleID, s.now())
	if err != nil {
		return nil, err
	}
	if alreadyPublished {
		return published, nil
	}

	memberIDs, err := s.members.MemberIDs(ctx, published.OrgID)
	if err != nil {
		slog.Warn("article notification skipped: list members",
			"article_id", published.ID, "error", err)
	} else if recipients := othersOf(memberIDs, actorID); len(recipients) > 0 {
		entityType := "article"
		if _, err := s.notifier.CreateBulk(ctx, recipients, published.OrgID, CreateInput{
			Type:       domain.TypeArticlePublished,
			Category:   domain.CategoryProject,
			Priority:   domain.PriorityLow,
			Title:      "New article: " + published.Title,
			Message:    "The article " + published.Title + " was published to the knowledge base.",
			EntityType: &entityType,
			EntityID:   &published.ID,
		}, true); err != nil {
			slog.Warn("article notification skipped", "article_id", published.ID, "error", err)
		}
	}

	s.audit.Record(published.OrgID, actorID, "article.published", "article", published.ID, nil)
	return published, nil
}

// Delete removes an article. Only the author or a manager may delete.
func (s *ArticleService) Delete(ctx context.Context, articleID, actorID int64) error {
	article, err := s.store.FindByID(ctx, articleID)
	if err != nil {
		return err
	}
	m, err := requireMember(ctx, s.members, article.OrgID, actorID)
	if err != nil {
		return err
	}
	if article.AuthorID != actorID && !m.Role.CanManage() {
		return domain.ErrForbidden
	}

	if err := s.store.Delete(ctx, articleID); err != nil {
		return err
	}
	s.audit.Record(article.OrgID, actorID, "article.deleted", "article", articleID, nil)
	return nil
}
