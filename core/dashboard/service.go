package dashboard

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
)

type (
	Repository interface {
		UserCounts(ctx context.Context, exec ...core.DBExecutor) (Counts, error)
		DestinationCounts(ctx context.Context, exec ...core.DBExecutor) (Counts, error)
		// RevenueRows returns the bookings made since `since`.
		RevenueRows(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]RevenueRow, error)
	}

	// Sources are the services whose figures the dashboard aggregates.
	Sources struct {
		Packages interface {
			Stats(ctx context.Context) (tour.Stats, error)
		}
		Activities interface {
			Stats(ctx context.Context) (activity.Stats, error)
		}
		Offers interface {
			Stats(ctx context.Context) (offer.Stats, error)
		}
		PromoCodes interface {
			Stats(ctx context.Context) (promo.Stats, error)
		}
		Bookings interface {
			Stats(ctx context.Context) (booking.Stats, error)
			Query(ctx context.Context, filter booking.QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[booking.Booking], error)
		}
		Blogs interface {
			CountByStatus(ctx context.Context) (map[string]int, error)
			Query(ctx context.Context, filter blog.QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[blog.Blog], error)
		}
	}

	Service struct {
		db        core.DB
		repo      Repository
		src       Sources
		cache     core.Cache
		conf      *core.Config
		startedAt time.Time
	}
)

func NewService(db core.DB, repo Repository, src Sources, cache core.Cache, conf *core.Config) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		src:       src,
		cache:     cache,
		conf:      conf,
		startedAt: core.NowFunc(),
	}
}

// Overview gathers the totals of every resource concurrently.
func (svc *Service) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		ov.Users, err = svc.repo.UserCounts(ctx)
		return errors.Wrap(err, "counting users")
	})
	g.Go(func() (err error) {
		ov.Destinations, err = svc.repo.DestinationCounts(ctx)
		return errors.Wrap(err, "counting destinations")
	})
	g.Go(func() (err error) {
		ov.Packages, err = svc.src.Packages.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Bookings, err = svc.src.Bookings.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Activities, err = svc.src.Activities.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Offers, err = svc.src.Offers.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.PromoCodes, err = svc.src.PromoCodes.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		ov.Blogs, err = svc.src.Blogs.CountByStatus(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	ov.Revenue = ov.Bookings.Revenue
	return ov, nil
}

// Revenue aggregates the bookings of the last `days` days (today included) into a daily series.
// Only confirmed and completed bookings bring revenue.
func (svc *Service) Revenue(ctx context.Context, days int) (Revenue, error) {
	if days < 1 {
		days = DefaultRevenueDays
	}
	if days > MaxRevenueDays {
		days = MaxRevenueDays
	}

	today := core.StartOfDay(core.NowFunc())
	from := today.AddDate(0, 0, -(days - 1))
	rows, err := svc.repo.RevenueRows(ctx, from)
	if err != nil {
		return Revenue{}, errors.Wrap(err, "finding revenue rows")
	}
	return aggregateRevenue(rows, from, days), nil
}

func aggregateRevenue(rows []RevenueRow, from time.Time, days int) Revenue {
	rev := Revenue{
		Days:  days,
		From:  from,
		To:    from.AddDate(0, 0, days-1),
		Daily: make([]DailyRevenue, days),
	}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format("2006-01-02")
		rev.Daily[i].Date = date
		index[date] = i
	}

	for _, row := range rows {
		i, ok := index[row.BookingDate.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		rev.Daily[i].Bookings++
		rev.TotalBookings++
		if row.Status == booking.StatusConfirmed || row.Status == booking.StatusCompleted {
			rev.Daily[i].Revenue += row.TotalAmount
			rev.TotalRevenue += row.TotalAmount
			rev.PaidBookings++
		}
	}

	for i := range rev.Daily {
		rev.Daily[i].Revenue = core.RoundMoney(rev.Daily[i].Revenue)
	}
	rev.TotalRevenue = core.RoundMoney(rev.TotalRevenue)
	if rev.PaidBookings > 0 {
		rev.AverageBookingValue = core.RoundMoney(rev.TotalRevenue / float64(rev.PaidBookings))
	}
	rev.Formatted = core.FormatMoney(rev.TotalRevenue)
	return rev
}

// Recent returns the latest bookings and blogs.
func (svc *Service) Recent(ctx context.Context, limit int) (Recent, error) {
	page := core.Page{Page: 1, Limit: limit}
	page.Clean(DefaultRecentLimit, MaxRecentLimit)
	newest := []core.DBOrdering{{Field: "created_at"}}

	var rec Recent
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := svc.src.Bookings.Query(ctx, booking.QueryFilter{}, page, newest)
		rec.Bookings = res.Items
		return err
	})
	g.Go(func() error {
		res, err := svc.src.Blogs.Query(ctx, blog.QueryFilter{}, page, newest)
		rec.Blogs = res.Items
		return err
	})
	if err := g.Wait(); err != nil {
		return Recent{}, err
	}
	return rec, nil
}

// System reports the health of the running process and its database.
func (svc *Service) System(ctx context.Context) System {
	now := core.NowFunc()
	uptime := now.Sub(svc.startedAt)
	sys := System{
		Build:         svc.conf.Build,
		Env:           svc.conf.Env,
		StartedAt:     humanize.Time(svc.startedAt),
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		DBEngine:      svc.conf.Database.Engine,
		DBStatus:      "ok",
		CacheEntries:  svc.cache.Len(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}

	start := time.Now()
	if err := svc.db.PingContext(ctx); err != nil {
		sys.DBStatus = "error: " + err.Error()
	}
	sys.DBLatencyMS = float64(time.Since(start).Microseconds()) / 1000
	return sys
}
