package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (s *server) registerDashboardAPI(g *echo.Group) {
	dg := g.Group("", s.requireRole(adminOnly))
	dg.GET("/dashboard/stats", s.dashboardStats)
	dg.GET("/dashboard/revenue", s.dashboardRevenue)
	dg.GET("/dashboard/recent", s.dashboardRecent)
	dg.GET("/system/stats", s.systemStats)

	dg.GET("/users", s.queryUsers)
	dg.GET("/users/:id", s.retrieveUser)
	dg.PATCH("/users/:id/toggle-status", s.toggleUserStatus)
	dg.DELETE("/users/:id", s.destroyUser)
}

func (s *server) dashboardStats(ctx echo.Context) error {
	overview, err := s.deps.DashboardSvc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (s *server) dashboardRevenue(ctx echo.Context) error {
	rev, err := s.deps.DashboardSvc.Revenue(ctx.Request().Context(), queryInt(ctx, "days"))
	if err != nil {
		return errors.Wrap(err, "computing revenue")
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (s *server) dashboardRecent(ctx echo.Context) error {
	recent, err := s.deps.DashboardSvc.Recent(ctx.Request().Context(), queryInt(ctx, "limit"))
	if err != nil {
		return errors.Wrap(err, "finding recent activity")
	}
	return ctx.JSON(http.StatusOK, recent)
}

func (s *server) systemStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.deps.DashboardSvc.System(ctx.Request().Context()))
}
