package blog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"

	ExcerptLength = 160
	RecentLimit   = 5
	FeaturedLimit = 3
)

var (
	Statuses   = []string{StatusDraft, StatusPublished, StatusArchived}
	Categories = []string{
		"Travel Guide",
		"Budget Travel",
		"Adventure",
		"Culture",
		"Food",
		"Tips",
		"Destination Review",
		"Travel Story",
	}
)

type Blog struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	AuthorID    string          `db:"author_id" json:"author_id"`
	Content     string          `db:"content" json:"content"`
	Excerpt     string          `db:"excerpt" json:"excerpt"`
	Status      string          `db:"status" json:"status"`
	PublishedAt null.Time       `db:"published_at" json:"published_at"`
	Category    string          `db:"category" json:"category"`
	Tags        core.StringList `db:"tags" json:"tags"`
	CoverImage  string          `db:"cover_image" json:"cover_image"`
	IsFeatured  bool            `db:"is_featured" json:"is_featured"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`

	AuthorName string `db:"author_name" json:"author_name"`
}

func (b Blog) IsPublished() bool { return b.Status == StatusPublished }

// Publish sets published_at the first time only.
func (b *Blog) Publish(now time.Time) {
	b.Status = StatusPublished
	if !b.PublishedAt.Valid {
		b.PublishedAt = null.TimeFrom(now)
	}
}

func (b *Blog) Unpublish() {
	b.Status = StatusDraft
}

// TogglePublish publishes a draft or archived blog and unpublishes a published one.
func (b *Blog) TogglePublish(now time.Time) {
	if b.IsPublished() {
		b.Unpublish()
	} else {
		b.Publish(now)
	}
}

type Input struct {
	Title      string   `json:"title" validate:"required,notblank,max=200"`
	Content    string   `json:"content" validate:"required,notblank"`
	Excerpt    string   `json:"excerpt" validate:"max=500"`
	Category   string   `json:"category" validate:"required,blogcategory"`
	Tags       []string `json:"tags" validate:"max=20,dive,notblank,max=50"`
	CoverImage string   `json:"cover_image" validate:"omitempty,max=500"`
	Status     string   `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (in *Input) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Content = core.CleanString(in.Content)
	in.Excerpt = core.CleanString(in.Excerpt)
	in.Category = core.CleanString(in.Category)
	if c := normalizeCategory(in.Category); c != "" {
		in.Category = c
	}
	in.CoverImage = core.CleanString(in.CoverImage)
	in.Status = core.CleanString(in.Status, true /* lower */)
	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]bool, len(in.Tags))
	for _, t := range in.Tags {
		t = core.CleanString(t, true /* lower */)
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return validate.Struct(in)
}

func (in Input) apply(b *Blog, now time.Time) {
	b.Title = in.Title
	b.Content = in.Content
	b.Excerpt = in.Excerpt
	if b.Excerpt == "" {
		b.Excerpt = core.Truncate(in.Content, ExcerptLength)
	}
	b.Category = in.Category
	b.Tags = in.Tags
	if in.CoverImage != "" {
		b.CoverImage = in.CoverImage
	}
	switch in.Status {
	case StatusPublished:
		b.Publish(now)
	case StatusDraft:
		b.Unpublish()
	case StatusArchived:
		b.Status = StatusArchived
	}
}

type QueryFilter struct {
	Search     string `query:"search"`
	Category   string `query:"category"`
	Tag        string `query:"tag"`
	Status     string `query:"status"`
	IsFeatured *bool  `query:"is_featured"`

	// set by the service
	AuthorID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	if c := normalizeCategory(qf.Category); c != "" {
		qf.Category = c
	}
	qf.Tag = core.CleanString(qf.Tag, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}
