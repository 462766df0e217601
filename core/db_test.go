package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere_Search(t *testing.T) {
	var w Where
	w.Search("   ")
	w.Search("term")
	assert.Empty(t, w.String())

	w.Search(` 50%_OFF\ `, "title", "code")
	w.Add("is_active = ?", true)
	assert.Equal(t, ` WHERE (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(code) LIKE ? ESCAPE '\') AND is_active = ?`, w.String())
	assert.Equal(t, []interface{}{`%50\%\_off\\%`, `%50\%\_off\\%`, true}, w.Args())
}
