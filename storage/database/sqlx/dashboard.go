package sqlxrepos

import (
	"context"
	"time"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/dashboard"
)

type dashboardRepository struct {
	repo
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{repo{exec: exec}}
}

const activeCounts = "SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active FROM "

func (r dashboardRepository) UserCounts(ctx context.Context, exec ...core.DBExecutor) (dashboard.Counts, error) {
	var c dashboard.Counts
	err := get(ctx, r.getExec(exec), nil, &c, activeCounts+"users")
	return c, err
}

func (r dashboardRepository) DestinationCounts(ctx context.Context, exec ...core.DBExecutor) (dashboard.Counts, error) {
	var c dashboard.Counts
	err := get(ctx, r.getExec(exec), nil, &c, activeCounts+"destinations")
	return c, err
}

func (r dashboardRepository) RevenueRows(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]dashboard.RevenueRow, error) {
	var rows []dashboard.RevenueRow
	err := selectAll(ctx, r.getExec(exec), &rows, `
		SELECT status, total_amount, booking_date FROM bookings
		WHERE booking_date >= ? ORDER BY booking_date`, since)
	return rows, err
}
