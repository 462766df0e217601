package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
)

// ItemsResponse wraps the unpaginated lists.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

func newItemsResponse[T any](items []T) ItemsResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ItemsResponse[T]{Items: items}
}

// retrieve returns a handler writing the object found by get for the `:id` path param.
func retrieve[T any](what string, get func(ctx context.Context, id string) (T, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		obj, err := get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrapf(err, "finding %s by ID", what)
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

// update returns a handler applying a parameterless change to the object at `:id`.
func update[T any](action string, apply func(ctx context.Context, id string) (T, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		obj, err := apply(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, action)
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

func destroy(what string, del func(ctx context.Context, id string) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := del(ctx.Request().Context(), ctx.Param("id")); err != nil {
			return errors.Wrapf(err, "deleting %s", what)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

// registerCatalogAPI registers the public read-only catalog.
func (s *server) registerCatalogAPI(g *echo.Group) {
	g.GET("/packages", s.queryPublicPackages)
	g.GET("/packages/featured", s.featuredPackages)
	g.GET("/packages/search/suggestions", s.packageSuggestions)
	g.GET("/packages/:id", retrieve("package", s.deps.PackageSvc.GetPublicDetail))

	g.GET("/destinations", s.queryPublicDestinations)
	g.GET("/destinations/:id", retrieve("destination", s.deps.DestinationSvc.GetActive))

	g.GET("/activities", s.queryPublicActivities)
	g.GET("/activities/:id", retrieve("activity", s.deps.ActivitySvc.GetActive))

	g.GET("/offers", s.queryPublicOffers)
	g.GET("/offers/:id", retrieve("offer", s.deps.OfferSvc.GetValid))

	g.GET("/trip-types", s.queryPublicTripTypes)
	g.GET("/trip-types/:id", retrieve("trip type", s.deps.TripTypeSvc.GetActive))

	g.GET("/promo_codes", s.queryPublicPromoCodes)
	g.GET("/promo_codes/code/:code", s.promoCodeByCode)
	g.POST("/promo_codes/validate", s.validatePromoCode)
}

func (s *server) queryPublicPackages(ctx echo.Context) error {
	var filter tour.QueryFilter
	page, ordering, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	pkgs, err := s.deps.PackageSvc.QueryPublic(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying public packages")
	}
	return ctx.JSON(http.StatusOK, pkgs)
}

func (s *server) featuredPackages(ctx echo.Context) error {
	pkgs, err := s.deps.PackageSvc.Featured(ctx.Request().Context(), queryInt(ctx, "limit"))
	if err != nil {
		return errors.Wrap(err, "finding featured packages")
	}
	return ctx.JSON(http.StatusOK, newItemsResponse(pkgs))
}

func (s *server) packageSuggestions(ctx echo.Context) error {
	sugs, err := s.deps.PackageSvc.Suggestions(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return errors.Wrap(err, "finding package suggestions")
	}
	return ctx.JSON(http.StatusOK, SuggestionsResponse{Suggestions: sugs})
}

func (s *server) queryPublicDestinations(ctx echo.Context) error {
	var filter destination.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	dests, err := s.deps.DestinationSvc.QueryActive(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying public destinations")
	}
	return ctx.JSON(http.StatusOK, dests)
}

func (s *server) queryPublicActivities(ctx echo.Context) error {
	var filter activity.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	acts, err := s.deps.ActivitySvc.QueryActive(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying public activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (s *server) queryPublicOffers(ctx echo.Context) error {
	var filter offer.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	offers, err := s.deps.OfferSvc.QueryValidCached(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying public offers")
	}
	return ctx.JSON(http.StatusOK, offers)
}

func (s *server) queryPublicTripTypes(ctx echo.Context) error {
	var filter triptype.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	types, err := s.deps.TripTypeSvc.QueryActive(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying public trip types")
	}
	return ctx.JSON(http.StatusOK, types)
}

func (s *server) queryPublicPromoCodes(ctx echo.Context) error {
	var filter promo.QueryFilter
	page, _, err := bindList(ctx, &filter)
	if err != nil {
		return err
	}
	codes, err := s.deps.PromoSvc.QueryValid(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying public promo codes")
	}
	return ctx.JSON(http.StatusOK, codes)
}

func (s *server) promoCodeByCode(ctx echo.Context) error {
	code, err := s.deps.PromoSvc.GetValidByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "finding promo code by code")
	}
	return ctx.JSON(http.StatusOK, code)
}

func (s *server) validatePromoCode(ctx echo.Context) error {
	var data promo.ValidateRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	res, err := s.deps.PromoSvc.Validate(ctx.Request().Context(), data, "")
	if err != nil {
		return errors.Wrap(err, "validating promo code")
	}
	return ctx.JSON(http.StatusOK, res)
}

type SuggestionsResponse struct {
	Suggestions []tour.Suggestion `json:"suggestions"`
}
