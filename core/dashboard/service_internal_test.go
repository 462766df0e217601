package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core/booking"
)

func Test_aggregateRevenue(t *testing.T) {
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	at := func(day, hour int) time.Time { return from.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour) }

	rows := []RevenueRow{
		{Status: booking.StatusConfirmed, TotalAmount: 1200.10, BookingDate: at(0, 9)},
		{Status: booking.StatusCompleted, TotalAmount: 800.20, BookingDate: at(0, 23)},
		{Status: booking.StatusPending, TotalAmount: 5000, BookingDate: at(1, 12)},
		{Status: booking.StatusCancelled, TotalAmount: 300, BookingDate: at(2, 1)},
		{Status: booking.StatusConfirmed, TotalAmount: 999.70, BookingDate: at(2, 15)},
		{Status: booking.StatusConfirmed, TotalAmount: 100, BookingDate: at(3, 0)}, // out of range
	}

	rev := aggregateRevenue(rows, from, 3)
	assert.Equal(t, 3, rev.Days)
	assert.Equal(t, from.AddDate(0, 0, 2), rev.To)
	require.Len(t, rev.Daily, 3)
	assert.Equal(t, DailyRevenue{Date: "2024-07-01", Revenue: 2000.3, Bookings: 2}, rev.Daily[0])
	assert.Equal(t, DailyRevenue{Date: "2024-07-02", Revenue: 0, Bookings: 1}, rev.Daily[1])
	assert.Equal(t, DailyRevenue{Date: "2024-07-03", Revenue: 999.7, Bookings: 2}, rev.Daily[2])

	assert.Equal(t, 5, rev.TotalBookings)
	assert.Equal(t, 3, rev.PaidBookings)
	assert.Equal(t, 3000.0, rev.TotalRevenue)
	assert.Equal(t, 1000.0, rev.AverageBookingValue)
	assert.Equal(t, "$3,000.00", rev.Formatted)

	empty := aggregateRevenue(nil, from, 2)
	assert.Zero(t, empty.AverageBookingValue)
	assert.Equal(t, "$0.00", empty.Formatted)
	assert.Equal(t, "2024-07-02", empty.Daily[1].Date)
}
