package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/dashboard"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
	"github.com/vistavoyage/voyage/core/user"
	cachesvc "github.com/vistavoyage/voyage/services/cache"
	sqlxrepos "github.com/vistavoyage/voyage/storage/database/sqlx"
)

// Services holds every core service, backed by the sqlx repositories.
type Services struct {
	Validate   *validator.Validate
	Translator ut.Translator
	Cache      *cachesvc.Cache

	User        *user.Service
	Admin       *admin.Service
	Destination *destination.Service
	TripType    *triptype.Service
	Activity    *activity.Service
	Offer       *offer.Service
	Package     *tour.Service
	Promo       *promo.Service
	Booking     *booking.Service
	Blog        *blog.Service
	Dashboard   *dashboard.Service
}

// NewServices builds the services on db. The caller owns the returned cache and must Close it.
func NewServices(db *sqlx.DB, conf *core.Config, mailSvc core.EmailService) *Services {
	validate, translator := NewValidator()
	cache := cachesvc.New(conf.Cache.DefaultTTL, conf.Cache.CleanupInterval)

	svc := &Services{Validate: validate, Translator: translator, Cache: cache}
	svc.User = user.NewService(sqlxrepos.NewUserRepository(db), cache, mailSvc, validate, conf)
	svc.Admin = admin.NewService(sqlxrepos.NewAdminRepository(db), validate)
	svc.Destination = destination.NewService(sqlxrepos.NewDestinationRepository(db), cache, validate)
	svc.TripType = triptype.NewService(sqlxrepos.NewTripTypeRepository(db), cache, validate)
	svc.Activity = activity.NewService(sqlxrepos.NewActivityRepository(db), cache, validate)
	svc.Offer = offer.NewService(sqlxrepos.NewOfferRepository(db), cache, validate)
	svc.Package = tour.NewService(
		db, sqlxrepos.NewPackageRepository(db), svc.Destination, svc.TripType, svc.Offer, svc.Activity, cache, validate,
	)
	svc.Promo = promo.NewService(sqlxrepos.NewPromoRepository(db), validate)
	svc.Booking = booking.NewService(
		db, sqlxrepos.NewBookingRepository(db), svc.Package, svc.Promo, svc.Offer, svc.User, mailSvc, validate,
	)
	svc.Blog = blog.NewService(sqlxrepos.NewBlogRepository(db), validate)
	svc.Dashboard = dashboard.NewService(db, sqlxrepos.NewDashboardRepository(db), dashboard.Sources{
		Packages:   svc.Package,
		Activities: svc.Activity,
		Offers:     svc.Offer,
		PromoCodes: svc.Promo,
		Bookings:   svc.Booking,
		Blogs:      svc.Blog,
	}, cache, conf)
	return svc
}
