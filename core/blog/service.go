package blog

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

var ErrNotFound = core.NewNotFoundError("blog not found")

type (
	Repository interface {
		CreateBlog(ctx context.Context, b Blog, exec ...core.DBExecutor) (Blog, error)
		// GetBlogByID also joins the author's name.
		GetBlogByID(ctx context.Context, id string, exec ...core.DBExecutor) (Blog, error)
		// QueryBlogs applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Blog.Title, Blog.Excerpt or Blog.Content.
		QueryBlogs(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Blog, int, error)
		UpdateBlog(ctx context.Context, b Blog, exec ...core.DBExecutor) (Blog, error)
		DeleteBlog(ctx context.Context, id string, exec ...core.DBExecutor) error
		// CountPublishedByCategory only counts published blogs.
		CountPublishedByCategory(ctx context.Context, exec ...core.DBExecutor) ([]CategoryCount, error)
		CountByStatus(ctx context.Context, exec ...core.DBExecutor) ([]StatusCount, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

var newestFirst = []core.DBOrdering{{Field: "published_at"}, {Field: "created_at"}}

// Public

func (svc *Service) QueryPublished(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[Blog], error) {
	filter.Status = StatusPublished
	filter.AuthorID = ""
	return svc.query(ctx, filter, page, newestFirst)
}

func (svc *Service) Featured(ctx context.Context, limit int) ([]Blog, error) {
	featured := true
	page := core.Page{Page: 1, Limit: limit}
	page.Clean(FeaturedLimit, core.MaxPageLimit)
	res, err := svc.query(ctx, QueryFilter{Status: StatusPublished, IsFeatured: &featured}, page, newestFirst)
	return res.Items, err
}

func (svc *Service) Recent(ctx context.Context, limit int) ([]Blog, error) {
	page := core.Page{Page: 1, Limit: limit}
	page.Clean(RecentLimit, core.MaxPageLimit)
	res, err := svc.query(ctx, QueryFilter{Status: StatusPublished}, page, newestFirst)
	return res.Items, err
}

// Categories lists every category with its count of published blogs.
func (svc *Service) Categories(ctx context.Context) ([]CategoryCount, error) {
	counts, err := svc.repo.CountPublishedByCategory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting blogs by category")
	}
	byCat := make(map[string]int, len(counts))
	for _, c := range counts {
		byCat[c.Category] = c.Count
	}
	out := make([]CategoryCount, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, CategoryCount{Category: c, Count: byCat[c]})
	}
	return out, nil
}

func (svc *Service) GetPublished(ctx context.Context, id string) (Blog, error) {
	b, err := svc.repo.GetBlogByID(ctx, id)
	if err != nil {
		return Blog{}, err
	}
	if !b.IsPublished() {
		return Blog{}, ErrNotFound
	}
	return b, nil
}

// Authors

func (svc *Service) Create(ctx context.Context, authorID string, in Input) (Blog, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Blog{}, err
	}
	now := core.NowFunc()
	b := Blog{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&b, now)
	b, err := svc.repo.CreateBlog(ctx, b)
	return b, errors.Wrap(err, "creating blog")
}

// GetOwned hides the blogs of other authors.
func (svc *Service) GetOwned(ctx context.Context, authorID, id string) (Blog, error) {
	b, err := svc.repo.GetBlogByID(ctx, id)
	if err != nil {
		return Blog{}, err
	}
	if b.AuthorID != authorID {
		return Blog{}, ErrNotFound
	}
	return b, nil
}

func (svc *Service) QueryOwned(ctx context.Context, authorID string, filter QueryFilter, page core.Page) (core.Paginated[Blog], error) {
	filter.AuthorID = authorID
	return svc.query(ctx, filter, page, []core.DBOrdering{{Field: "updated_at"}})
}

func (svc *Service) UpdateOwned(ctx context.Context, authorID, id string, in Input) (Blog, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Blog{}, err
	}
	b, err := svc.GetOwned(ctx, authorID, id)
	if err != nil {
		return Blog{}, err
	}
	in.apply(&b, core.NowFunc())
	return svc.save(ctx, b)
}

func (svc *Service) DeleteOwned(ctx context.Context, authorID, id string) error {
	if _, err := svc.GetOwned(ctx, authorID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteBlog(ctx, id), "deleting blog")
}

func (svc *Service) TogglePublishOwned(ctx context.Context, authorID, id string) (Blog, error) {
	b, err := svc.GetOwned(ctx, authorID, id)
	if err != nil {
		return Blog{}, err
	}
	b.TogglePublish(core.NowFunc())
	return svc.save(ctx, b)
}

// Admin

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Blog], error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.query(ctx, filter, page, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Blog, error) {
	return svc.repo.GetBlogByID(ctx, id)
}

func (svc *Service) TogglePublish(ctx context.Context, id string) (Blog, error) {
	b, err := svc.repo.GetBlogByID(ctx, id)
	if err != nil {
		return Blog{}, err
	}
	b.TogglePublish(core.NowFunc())
	return svc.save(ctx, b)
}

func (svc *Service) ToggleFeatured(ctx context.Context, id string) (Blog, error) {
	b, err := svc.repo.GetBlogByID(ctx, id)
	if err != nil {
		return Blog{}, err
	}
	b.IsFeatured = !b.IsFeatured
	return svc.save(ctx, b)
}

func (svc *Service) SetImage(ctx context.Context, id, url string) (Blog, error) {
	b, err := svc.repo.GetBlogByID(ctx, id)
	if err != nil {
		return Blog{}, err
	}
	b.CoverImage = url
	return svc.save(ctx, b)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetBlogByID(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteBlog(ctx, id), "deleting blog")
}

// CountByStatus returns a count for every status.
func (svc *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts, err := svc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting blogs by status")
	}
	out := make(map[string]int, len(Statuses))
	for _, s := range Statuses {
		out[s] = 0
	}
	for _, c := range counts {
		out[c.Status] = c.Count
	}
	return out, nil
}

func (svc *Service) query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Blog], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	blogs, total, err := svc.repo.QueryBlogs(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Blog]{}, errors.Wrap(err, "querying blogs")
	}
	return core.NewPaginated(blogs, total, page), nil
}

func (svc *Service) save(ctx context.Context, b Blog) (Blog, error) {
	b.UpdatedAt = core.NowFunc()
	updated, err := svc.repo.UpdateBlog(ctx, b)
	if err != nil {
		return Blog{}, errors.Wrap(err, "updating blog")
	}
	updated.AuthorName = b.AuthorName
	return updated, nil
}
