package blog

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core"
)

func TestBlog_TogglePublish(t *testing.T) {
	first := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	b := Blog{Status: StatusDraft}

	b.TogglePublish(first)
	assert.True(t, b.IsPublished())
	assert.Equal(t, first, b.PublishedAt.Time)

	b.TogglePublish(first.Add(time.Hour))
	assert.Equal(t, StatusDraft, b.Status)
	assert.True(t, b.PublishedAt.Valid)

	// republishing keeps the original date
	b.TogglePublish(first.Add(48 * time.Hour))
	assert.True(t, b.IsPublished())
	assert.Equal(t, first, b.PublishedAt.Time)

	archived := Blog{Status: StatusArchived}
	archived.TogglePublish(first)
	assert.True(t, archived.IsPublished())
}

func TestInput_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	tests := []struct {
		name      string
		in        Input
		wantField string
		check     func(t *testing.T, in Input)
	}{
		{
			name: "normalised",
			in: Input{
				Title:    "  Ten days in Kyoto ",
				Content:  "Temples.",
				Category: "travel guide",
				Tags:     []string{"Japan", " japan ", "Temples"},
				Status:   "Published",
			},
			check: func(t *testing.T, in Input) {
				assert.Equal(t, "Ten days in Kyoto", in.Title)
				assert.Equal(t, "Travel Guide", in.Category)
				assert.Equal(t, []string{"japan", "temples"}, in.Tags)
				assert.Equal(t, StatusPublished, in.Status)
			},
		},
		{name: "unknown category", in: Input{Title: "T", Content: "C", Category: "Gossip"}, wantField: "Category"},
		{name: "blank title", in: Input{Title: "   ", Content: "C", Category: "Food"}, wantField: "Title"},
		{name: "bad status", in: Input{Title: "T", Content: "C", Category: "Food", Status: "deleted"}, wantField: "Status"},
		{name: "blank tag", in: Input{Title: "T", Content: "C", Category: "Food", Tags: []string{"ok", "  "}}, wantField: "Tags[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate(validate)
			if tt.wantField == "" {
				require.NoError(t, err)
				tt.check(t, tt.in)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.wantField, vErrs[0].StructField())
		})
	}
}

func TestInput_apply(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	content := strings.Repeat("Savannah sunsets and long drives ", 10)

	var b Blog
	Input{Title: "Safari", Content: content, Category: "Adventure", Status: StatusPublished}.apply(&b, now)
	assert.True(t, b.IsPublished())
	assert.Equal(t, now, b.PublishedAt.Time)
	assert.True(t, strings.HasSuffix(b.Excerpt, "..."))
	assert.LessOrEqual(t, len([]rune(b.Excerpt)), ExcerptLength)

	Input{Title: "Safari", Content: content, Excerpt: "Short.", Category: "Adventure", Status: StatusArchived}.apply(&b, now)
	assert.Equal(t, "Short.", b.Excerpt)
	assert.Equal(t, StatusArchived, b.Status)

	// no status keeps the current one
	Input{Title: "Safari", Content: content, Category: "Adventure"}.apply(&b, now)
	assert.Equal(t, StatusArchived, b.Status)
}
