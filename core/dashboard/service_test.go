package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/apps/shared"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/dashboard"
	emailsvc "github.com/vistavoyage/voyage/services/email"
	sqlxrepos "github.com/vistavoyage/voyage/storage/database/sqlx"
	"github.com/vistavoyage/voyage/tests"
)

func TestService(t *testing.T) {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	svc := shared.NewServices(db, conf, emailsvc.NewConsoleServiceMock(conf))
	t.Cleanup(svc.Cache.Close)
	ctx := context.Background()

	usrRepo := sqlxrepos.NewUserRepository(db)
	jane := testutil.CreateUser(t, usrRepo, "Jane", "jane@voyage.test", "", true)
	testutil.CreateUser(t, usrRepo, "John", "john@voyage.test", "", false)
	dest := testutil.CreateDestination(t, sqlxrepos.NewDestinationRepository(db), "Zanzibar", "Tanzania", true)
	testutil.CreateDestination(t, sqlxrepos.NewDestinationRepository(db), "Closed", "Nowhere", false)
	pkg := testutil.CreatePackage(t, sqlxrepos.NewPackageRepository(db), dest, "Spice Island", 1000)

	bookRepo := sqlxrepos.NewBookingRepository(db)
	testutil.CreateBooking(t, bookRepo, jane, pkg, 2, func(b *booking.Booking) { b.Status = booking.StatusConfirmed })
	testutil.CreateBooking(t, bookRepo, jane, pkg, 1)
	last := testutil.CreateBooking(t, bookRepo, jane, pkg, 1, func(b *booking.Booking) {
		b.Status = booking.StatusCompleted
		b.CreatedAt = b.CreatedAt.Add(time.Second)
	})

	blogRepo := sqlxrepos.NewBlogRepository(db)
	testutil.CreateBlog(t, blogRepo, jane, "Stone Town", "Culture", true)
	testutil.CreateBlog(t, blogRepo, jane, "Draft", "Food", false)

	t.Run("overview", func(t *testing.T) {
		ov, err := svc.Dashboard.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, dashboard.Counts{Total: 2, Active: 1}, ov.Users)
		assert.Equal(t, dashboard.Counts{Total: 2, Active: 1}, ov.Destinations)
		assert.Equal(t, 1, ov.Packages.Total)
		assert.Equal(t, 3, ov.Bookings.Total)
		assert.Equal(t, 1, ov.Bookings.ByStatus[booking.StatusPending])
		assert.Equal(t, 3000.0, ov.Revenue)
		assert.Equal(t, 1, ov.Blogs[blog.StatusPublished])
		assert.Equal(t, 1, ov.Blogs[blog.StatusDraft])
	})

	t.Run("revenue", func(t *testing.T) {
		rev, err := svc.Dashboard.Revenue(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, dashboard.DefaultRevenueDays, rev.Days)
		assert.Len(t, rev.Daily, dashboard.DefaultRevenueDays)
		assert.Equal(t, 3, rev.TotalBookings)
		assert.Equal(t, 2, rev.PaidBookings)
		assert.Equal(t, 3000.0, rev.TotalRevenue)
		assert.Equal(t, 1500.0, rev.AverageBookingValue)
		assert.Equal(t, 3000.0, rev.Daily[len(rev.Daily)-1].Revenue)

		rev, err = svc.Dashboard.Revenue(ctx, 10_000)
		require.NoError(t, err)
		assert.Equal(t, dashboard.MaxRevenueDays, rev.Days)
	})

	t.Run("recent", func(t *testing.T) {
		rec, err := svc.Dashboard.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, rec.Bookings, 1)
		assert.Equal(t, last.ID, rec.Bookings[0].ID)
		assert.Len(t, rec.Blogs, 1)
	})

	t.Run("system", func(t *testing.T) {
		sys := svc.Dashboard.System(ctx)
		assert.Equal(t, "ok", sys.DBStatus)
		assert.Equal(t, conf.Database.Engine, sys.DBEngine)
		assert.Positive(t, sys.Goroutines)
	})

}
