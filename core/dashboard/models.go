package dashboard

import (
	"time"

	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
)

const (
	DefaultRevenueDays = 30
	MaxRevenueDays     = 365
	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

type Counts struct {
	Total  int `db:"total" json:"total"`
	Active int `db:"active" json:"active"`
}

type Overview struct {
	Users        Counts         `json:"users"`
	Packages     tour.Stats     `json:"packages"`
	Bookings     booking.Stats  `json:"bookings"`
	Revenue      float64        `json:"revenue"`
	Destinations Counts         `json:"destinations"`
	Activities   activity.Stats `json:"activities"`
	Offers       offer.Stats    `json:"offers"`
	PromoCodes   promo.Stats    `json:"promo_codes"`
	Blogs        map[string]int `json:"blogs"`
}

// RevenueRow is the part of a booking that revenue analytics need.
type RevenueRow struct {
	Status      string    `db:"status"`
	TotalAmount float64   `db:"total_amount"`
	BookingDate time.Time `db:"booking_date"`
}

type DailyRevenue struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Revenue  float64 `json:"revenue"`
	Bookings int     `json:"bookings"`
}

type Revenue struct {
	Days                int            `json:"days"`
	From                time.Time      `json:"from"`
	To                  time.Time      `json:"to"`
	TotalRevenue        float64        `json:"total_revenue"`
	TotalBookings       int            `json:"total_bookings"`
	PaidBookings        int            `json:"paid_bookings"`
	AverageBookingValue float64        `json:"average_booking_value"`
	Formatted           string         `json:"formatted_revenue"`
	Daily               []DailyRevenue `json:"daily"`
}

type Recent struct {
	Bookings []booking.Booking `json:"bookings"`
	Blogs    []blog.Blog       `json:"blogs"`
}

type System struct {
	Build         string  `json:"build"`
	Env           string  `json:"env"`
	StartedAt     string  `json:"started_at"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	DBEngine      string  `json:"db_engine"`
	DBStatus      string  `json:"db_status"`
	DBLatencyMS   float64 `json:"db_latency_ms"`
	CacheEntries  int     `json:"cache_entries"`
	Goroutines    int     `json:"goroutines"`
	GoVersion     string  `json:"go_version"`
}
