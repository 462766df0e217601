package sqlxrepos

import (
	"context"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/blog"
)

type blogRepository struct {
	repo
}

var _ blog.Repository = (*blogRepository)(nil) // interface compliance check

func NewBlogRepository(exec core.DBExecutor) *blogRepository {
	return &blogRepository{repo{exec: exec}}
}

const blogSelect = `
	SELECT b.*, u.full_name AS author_name
	FROM blogs b JOIN users u ON u.id = b.author_id`

var blogOrdering = fields("title", "category", "status", "published_at", "created_at", "updated_at")

func (r blogRepository) CreateBlog(ctx context.Context, b blog.Blog, exec ...core.DBExecutor) (blog.Blog, error) {
	e := r.getExec(exec)
	err := namedExec(ctx, e, `
		INSERT INTO blogs (id, title, author_id, content, excerpt, status, published_at, category, tags, cover_image,
		                   is_featured, created_at, updated_at)
		VALUES (:id, :title, :author_id, :content, :excerpt, :status, :published_at, :category, :tags, :cover_image,
		        :is_featured, :created_at, :updated_at)`, b)
	if err != nil {
		return blog.Blog{}, err
	}
	return r.GetBlogByID(ctx, b.ID, e)
}

func (r blogRepository) GetBlogByID(ctx context.Context, id string, exec ...core.DBExecutor) (blog.Blog, error) {
	var b blog.Blog
	err := get(ctx, r.getExec(exec), blog.ErrNotFound, &b, blogSelect+" WHERE b.id = ?", id)
	return b, err
}

func (r blogRepository) QueryBlogs(ctx context.Context, filter blog.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]blog.Blog, int, error) {
	var where core.Where
	where.Search(filter.Search, "title", "excerpt", "content")
	if filter.Category != "" {
		where.Add("category = ?", filter.Category)
	}
	if filter.Tag != "" {
		// tags are stored as a JSON array of lowercase strings
		where.Add("LOWER(tags) LIKE ?", `%"`+filter.Tag+`"%`)
	}
	if filter.Status != "" {
		where.Add("status = ?", filter.Status)
	}
	if filter.IsFeatured != nil {
		where.Add("is_featured = ?", *filter.IsFeatured)
	}
	if filter.AuthorID != "" {
		where.Add("author_id = ?", filter.AuthorID)
	}
	return queryPage[blog.Blog](ctx, r.getExec(exec), blogSelect, &where, ordering, blogOrdering, "created_at DESC", page)
}

func (r blogRepository) UpdateBlog(ctx context.Context, b blog.Blog, exec ...core.DBExecutor) (blog.Blog, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE blogs SET title = :title, content = :content, excerpt = :excerpt, status = :status,
		                 published_at = :published_at, category = :category, tags = :tags,
		                 cover_image = :cover_image, is_featured = :is_featured, updated_at = :updated_at
		WHERE id = :id`, b)
	if err != nil {
		return blog.Blog{}, err
	}
	if err = execOne(ctx, e, blog.ErrNotFound, q, args...); err != nil {
		return blog.Blog{}, err
	}
	return r.GetBlogByID(ctx, b.ID, e)
}

func (r blogRepository) DeleteBlog(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), blog.ErrNotFound, "DELETE FROM blogs WHERE id = ?", id)
}

func (r blogRepository) CountPublishedByCategory(ctx context.Context, exec ...core.DBExecutor) ([]blog.CategoryCount, error) {
	var counts []blog.CategoryCount
	err := selectAll(ctx, r.getExec(exec), &counts, `
		SELECT category, COUNT(*) AS count FROM blogs WHERE status = ?
		GROUP BY category ORDER BY count DESC, category`, blog.StatusPublished)
	return counts, err
}

func (r blogRepository) CountByStatus(ctx context.Context, exec ...core.DBExecutor) ([]blog.StatusCount, error) {
	var counts []blog.StatusCount
	err := selectAll(ctx, r.getExec(exec), &counts,
		"SELECT status, COUNT(*) AS count FROM blogs GROUP BY status ORDER BY status")
	return counts, err
}
