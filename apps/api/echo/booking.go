package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/promo"
)

func (s *server) registerBookingAPI(g *echo.Group) {
	g.Use(s.userMiddleware)
	g.GET("", s.queryMyBookings)
	g.POST("", s.createBooking)
	g.POST("/validate-promo", s.validateBookingPromo)
	g.GET("/:id", s.retrieveMyBooking)
	g.POST("/:id/cancel", s.cancelBooking)
	g.POST("/:id/payment", s.payBooking)
}

func (s *server) registerAdminBookingAPI(g *echo.Group) {
	bg := g.Group("/bookings", s.requireRole(adminOnly))
	bg.GET("", s.queryBookings)
	bg.GET("/stats", s.bookingStats)
	bg.GET("/:id", s.retrieveBooking)
	bg.PATCH("/:id/status", s.updateBookingStatus)
}

// User endpoints

func (s *server) queryMyBookings(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var filter booking.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	bookings, err := s.deps.BookingSvc.QueryForUser(ctx.Request().Context(), usr.ID, filter, page)
	if err != nil {
		return errors.Wrap(err, "querying user bookings")
	}
	return ctx.JSON(http.StatusOK, bookings)
}

func (s *server) createBooking(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data booking.NewBooking
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	b, err := s.deps.BookingSvc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating booking")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (s *server) validateBookingPromo(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data promo.ValidateRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	res, err := s.deps.BookingSvc.ValidatePromo(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "validating booking promo code")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) retrieveMyBooking(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	detail, err := s.deps.BookingSvc.GetForUser(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user booking")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *server) cancelBooking(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data booking.Cancel
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	b, err := s.deps.BookingSvc.Cancel(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "cancelling booking")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (s *server) payBooking(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data booking.Pay
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	detail, err := s.deps.BookingSvc.Pay(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "paying booking")
	}
	return ctx.JSON(http.StatusOK, detail)
}

// Admin endpoints

func (s *server) queryBookings(ctx echo.Context) error {
	var filter booking.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	bookings, err := s.deps.BookingSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying bookings")
	}
	return ctx.JSON(http.StatusOK, bookings)
}

func (s *server) bookingStats(ctx echo.Context) error {
	stats, err := s.deps.BookingSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing booking stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (s *server) retrieveBooking(ctx echo.Context) error {
	detail, err := s.deps.BookingSvc.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding booking by ID")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *server) updateBookingStatus(ctx echo.Context) error {
	var data booking.StatusUpdate
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	b, err := s.deps.BookingSvc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating booking status")
	}
	return ctx.JSON(http.StatusOK, b)
}
