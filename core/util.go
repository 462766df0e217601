package core

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
)

// NowFunc is the clock used by the core packages.
var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// RoundMoney rounds an amount to cents.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatMoney renders an amount in dollars with thousands separators and cents, eg. $3,000.00.
func FormatMoney(amount float64) string {
	return "$" + humanize.FormatFloat("#,###.##", RoundMoney(amount))
}

const ellipsis = "..."

// Truncate cuts `s` to at most `n` runes, ellipsis included, preferring the last word boundary.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return string(runes[:max(n, 0)])
	}
	cut := runes[:n-len(ellipsis)]
	for i := len(cut) - 1; i > len(cut)/2; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRight(string(cut), " ,.;:") + ellipsis
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Difficulty levels shared by activities and packages.
const (
	DifficultyEasy        = "easy"
	DifficultyModerate    = "moderate"
	DifficultyChallenging = "challenging"
	DifficultyExpert      = "expert"
)

var Difficulties = []string{DifficultyEasy, DifficultyModerate, DifficultyChallenging, DifficultyExpert}

func IsDifficulty(s string) bool {
	for _, d := range Difficulties {
		if s == d {
			return true
		}
	}
	return false
}
