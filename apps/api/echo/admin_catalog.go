package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
)

const (
	destinationFolder = "destinations"
	activityFolder    = "activities"
	packageFolder     = "packages"
)

// registerAdminCatalogAPI registers the catalog management endpoints.
func (s *server) registerAdminCatalogAPI(g *echo.Group) {
	dg := g.Group("/destinations", s.requireRole(editorOnly))
	dg.GET("", s.queryDestinations)
	dg.POST("", s.createDestination)
	dg.POST("/upload-image", s.uploadImage(destinationFolder))
	dg.GET("/:id", retrieve("destination", s.deps.DestinationSvc.GetByID))
	dg.PUT("/:id", s.updateDestination)
	dg.DELETE("/:id", destroy("destination", s.deps.DestinationSvc.Delete))
	dg.POST("/:id/upload-image", attachImage(s.deps.MediaSvc, destinationFolder, s.deps.DestinationSvc.SetImage))

	tg := g.Group("/trip-types", s.requireRole(editorOnly))
	tg.GET("", s.queryTripTypes)
	tg.POST("", s.createTripType)
	tg.GET("/:id", retrieve("trip type", s.deps.TripTypeSvc.GetByID))
	tg.PUT("/:id", s.updateTripType)
	tg.DELETE("/:id", destroy("trip type", s.deps.TripTypeSvc.Delete))

	acg := g.Group("/activities", s.requireRole(editorOnly))
	acg.GET("", s.queryActivities)
	acg.POST("", s.createActivity)
	acg.GET("/stats", s.activityStats)
	acg.GET("/types/list", s.activityTypes)
	acg.GET("/difficulty-levels/list", s.activityDifficulties)
	acg.POST("/upload-image", s.uploadImage(activityFolder))
	acg.GET("/:id", retrieve("activity", s.deps.ActivitySvc.GetByID))
	acg.PUT("/:id", s.updateActivity)
	acg.DELETE("/:id", destroy("activity", s.deps.ActivitySvc.Delete))
	acg.PATCH("/:id/toggle-status", update("toggling activity status", s.deps.ActivitySvc.ToggleStatus))
	acg.POST("/:id/upload-image", attachImage(s.deps.MediaSvc, activityFolder, s.deps.ActivitySvc.SetImage))

	og := g.Group("/offers", s.requireRole(editorOnly))
	og.GET("", s.queryOffers)
	og.POST("", s.createOffer)
	og.GET("/stats", s.offerStats)
	og.GET("/active/current", s.queryCurrentOffers)
	og.GET("/expiring/soon", s.queryExpiringOffers)
	og.GET("/:id", retrieve("offer", func(ctx context.Context, id string) (offer.Offer, error) {
		return s.deps.OfferSvc.GetByID(ctx, id)
	}))
	og.PUT("/:id", s.updateOffer)
	og.DELETE("/:id", destroy("offer", s.deps.OfferSvc.Delete))
	og.PATCH("/:id/toggle-active", update("toggling offer", s.deps.OfferSvc.ToggleActive))

	pg := g.Group("/packages", s.requireRole(editorOnly))
	pg.GET("", s.queryPackages)
	pg.POST("", s.createPackage)
	pg.GET("/stats", s.packageStats)
	pg.POST("/upload-image", s.uploadImage(packageFolder))
	pg.GET("/:id", retrieve("package", s.deps.PackageSvc.GetDetail))
	pg.PUT("/:id", s.updatePackage)
	pg.DELETE("/:id", destroy("package", s.deps.PackageSvc.Delete))
	pg.PATCH("/:id/toggle-active", update("toggling package", s.deps.PackageSvc.ToggleActive))
	pg.PATCH("/:id/toggle-featured", update("toggling featured package", s.deps.PackageSvc.ToggleFeatured))
	pg.POST("/:id/upload-image", attachImage(s.deps.MediaSvc, packageFolder, s.deps.PackageSvc.SetImage))

	cg := g.Group("/promo-codes", s.requireRole(adminOnly))
	cg.GET("", s.queryPromoCodes)
	cg.POST("", s.createPromoCode)
	cg.GET("/stats", s.promoCodeStats)
	cg.GET("/validate/:code", s.checkPromoCode)
	cg.GET("/:id", retrieve("promo code", func(ctx context.Context, id string) (promo.PromoCode, error) {
		return s.deps.PromoSvc.GetByID(ctx, id)
	}))
	cg.PUT("/:id", s.updatePromoCode)
	cg.DELETE("/:id", destroy("promo code", s.deps.PromoSvc.Delete))
	cg.PATCH("/:id/toggle-status", update("toggling promo code", s.deps.PromoSvc.ToggleActive))
}

// Destinations

func (s *server) queryDestinations(ctx echo.Context) error {
	var filter destination.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	dests, err := s.deps.DestinationSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying destinations")
	}
	return ctx.JSON(http.StatusOK, dests)
}

func (s *server) createDestination(ctx echo.Context) error {
	adm, err := s.getContextAdmin(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context admin")
	}
	var data destination.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	dest, err := s.deps.DestinationSvc.Create(ctx.Request().Context(), adm.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating destination")
	}
	return ctx.JSON(http.StatusCreated, dest)
}

func (s *server) updateDestination(ctx echo.Context) error {
	var data destination.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	dest, err := s.deps.DestinationSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating destination")
	}
	return ctx.JSON(http.StatusOK, dest)
}

// Trip types

func (s *server) queryTripTypes(ctx echo.Context) error {
	var filter triptype.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	types, err := s.deps.TripTypeSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying trip types")
	}
	return ctx.JSON(http.StatusOK, types)
}

func (s *server) createTripType(ctx echo.Context) error {
	var data triptype.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	tt, err := s.deps.TripTypeSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating trip type")
	}
	return ctx.JSON(http.StatusCreated, tt)
}

func (s *server) updateTripType(ctx echo.Context) error {
	var data triptype.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	tt, err := s.deps.TripTypeSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating trip type")
	}
	return ctx.JSON(http.StatusOK, tt)
}

// Activities

func (s *server) queryActivities(ctx echo.Context) error {
	var filter activity.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	acts, err := s.deps.ActivitySvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (s *server) createActivity(ctx echo.Context) error {
	var data activity.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	act, err := s.deps.ActivitySvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, act)
}

func (s *server) updateActivity(ctx echo.Context) error {
	var data activity.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	act, err := s.deps.ActivitySvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (s *server) activityStats(ctx echo.Context) error {
	stats, err := s.deps.ActivitySvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing activity stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (s *server) activityTypes(ctx echo.Context) error {
	types, err := s.deps.ActivitySvc.Types(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing activity types")
	}
	return ctx.JSON(http.StatusOK, newItemsResponse(types))
}

func (s *server) activityDifficulties(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newItemsResponse(s.deps.ActivitySvc.Difficulties()))
}

// Offers

func (s *server) queryOffers(ctx echo.Context) error {
	var filter offer.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	offers, err := s.deps.OfferSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying offers")
	}
	return ctx.JSON(http.StatusOK, offers)
}

func (s *server) queryCurrentOffers(ctx echo.Context) error {
	var filter offer.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	offers, err := s.deps.OfferSvc.QueryValid(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying current offers")
	}
	return ctx.JSON(http.StatusOK, offers)
}

func (s *server) queryExpiringOffers(ctx echo.Context) error {
	var page core.Page
	if err := ctx.Bind(&page); err != nil {
		return err
	}
	offers, err := s.deps.OfferSvc.QueryExpiringSoon(ctx.Request().Context(), page)
	if err != nil {
		return errors.Wrap(err, "querying expiring offers")
	}
	return ctx.JSON(http.StatusOK, offers)
}

func (s *server) createOffer(ctx echo.Context) error {
	var data offer.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	o, err := s.deps.OfferSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating offer")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (s *server) updateOffer(ctx echo.Context) error {
	var data offer.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	o, err := s.deps.OfferSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating offer")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (s *server) offerStats(ctx echo.Context) error {
	stats, err := s.deps.OfferSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing offer stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Packages

func (s *server) queryPackages(ctx echo.Context) error {
	var filter tour.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	pkgs, err := s.deps.PackageSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying packages")
	}
	return ctx.JSON(http.StatusOK, pkgs)
}

func (s *server) createPackage(ctx echo.Context) error {
	var data tour.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	pkg, err := s.deps.PackageSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating package")
	}
	return ctx.JSON(http.StatusCreated, pkg)
}

func (s *server) updatePackage(ctx echo.Context) error {
	var data tour.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	pkg, err := s.deps.PackageSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating package")
	}
	return ctx.JSON(http.StatusOK, pkg)
}

func (s *server) packageStats(ctx echo.Context) error {
	stats, err := s.deps.PackageSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing package stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Promo codes

func (s *server) queryPromoCodes(ctx echo.Context) error {
	var filter promo.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	codes, err := s.deps.PromoSvc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying promo codes")
	}
	return ctx.JSON(http.StatusOK, codes)
}

func (s *server) createPromoCode(ctx echo.Context) error {
	adm, err := s.getContextAdmin(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context admin")
	}
	var data promo.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	pc, err := s.deps.PromoSvc.Create(ctx.Request().Context(), adm.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating promo code")
	}
	return ctx.JSON(http.StatusCreated, pc)
}

func (s *server) updatePromoCode(ctx echo.Context) error {
	var data promo.Input
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	pc, err := s.deps.PromoSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating promo code")
	}
	return ctx.JSON(http.StatusOK, pc)
}

func (s *server) promoCodeStats(ctx echo.Context) error {
	stats, err := s.deps.PromoSvc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing promo code stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// checkPromoCode evaluates a code against `?amount=` without any user context.
func (s *server) checkPromoCode(ctx echo.Context) error {
	amount, err := strconv.ParseFloat(ctx.QueryParam("amount"), 64)
	if err != nil || amount < 0 {
		return core.NewFieldError("amount", "amount must be a positive number")
	}
	req := promo.ValidateRequest{Code: ctx.Param("code"), Amount: amount}
	res, err := s.deps.PromoSvc.Validate(ctx.Request().Context(), req, "")
	if err != nil {
		return errors.Wrap(err, "validating promo code")
	}
	return ctx.JSON(http.StatusOK, res)
}
