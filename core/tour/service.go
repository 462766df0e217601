package tour

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/triptype"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("package not found")
	ErrHasBookings = core.NewConflictError("package has bookings")
)

type (
	Repository interface {
		CreatePackage(ctx context.Context, pkg Package, activityIDs []string, exec ...core.DBExecutor) (Package, error)
		GetPackageByID(ctx context.Context, id string, exec ...core.DBExecutor) (Package, error)
		// QueryPackages applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Package.Title, Package.Description or the destination name.
		QueryPackages(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Package, int, error)
		// UpdatePackage replaces the package's activities with activityIDs unless it is nil.
		UpdatePackage(ctx context.Context, pkg Package, activityIDs []string, exec ...core.DBExecutor) (Package, error)
		DeletePackage(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountBookings(ctx context.Context, id string, exec ...core.DBExecutor) (int, error)
		GetPackageActivities(ctx context.Context, id string, exec ...core.DBExecutor) ([]activity.Activity, error)
		Suggestions(ctx context.Context, term string, limit int, exec ...core.DBExecutor) ([]Suggestion, error)
		PackageStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
	}

	destinationGetter interface {
		GetByID(ctx context.Context, id string) (destination.Destination, error)
	}
	tripTypeGetter interface {
		GetByID(ctx context.Context, id string) (triptype.TripType, error)
	}
	offerGetter interface {
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (offer.Offer, error)
	}
	activityChecker interface {
		CheckExist(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service struct {
		db         core.DB
		repo       Repository
		dests      destinationGetter
		tripTypes  tripTypeGetter
		offers     offerGetter
		activities activityChecker
		cache      core.Cache
		validate   *validator.Validate
	}
)

func NewService(
	db core.DB,
	repo Repository,
	dests destinationGetter,
	tripTypes tripTypeGetter,
	offers offerGetter,
	activities activityChecker,
	cache core.Cache,
	validate *validator.Validate,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		dests:      dests,
		tripTypes:  tripTypes,
		offers:     offers,
		activities: activities,
		cache:      cache,
		validate:   validate,
	}
}

// checkReferences fails with a validation error on the first reference that does not exist.
func (svc *Service) checkReferences(ctx context.Context, in Input) error {
	if _, err := svc.dests.GetByID(ctx, in.DestinationID); err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("destination_id", "unknown destination")
		}
		return errors.Wrap(err, "finding destination")
	}
	if in.TripTypeID != "" {
		if _, err := svc.tripTypes.GetByID(ctx, in.TripTypeID); err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("trip_type_id", "unknown trip type")
			}
			return errors.Wrap(err, "finding trip type")
		}
	}
	if in.OfferID != "" {
		if _, err := svc.offers.GetByID(ctx, in.OfferID); err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("offer_id", "unknown offer")
			}
			return errors.Wrap(err, "finding offer")
		}
	}
	return svc.activities.CheckExist(ctx, in.ActivityIDs)
}

func (svc *Service) Create(ctx context.Context, in Input) (Package, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Package{}, err
	}
	if err := svc.checkReferences(ctx, in); err != nil {
		return Package{}, err
	}

	now := core.NowFunc()
	pkg := Package{ID: uuid.New().String(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&pkg)

	activityIDs := in.ActivityIDs
	if activityIDs == nil {
		activityIDs = []string{}
	}
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		pkg, err = svc.repo.CreatePackage(ctx, pkg, activityIDs, tx)
		return err
	})
	if err != nil {
		return Package{}, errors.Wrap(err, "creating package")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return svc.withPrice(ctx, pkg)
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (Package, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Package{}, err
	}
	pkg, err := svc.repo.GetPackageByID(ctx, id)
	if err != nil {
		return Package{}, err
	}
	if err = svc.checkReferences(ctx, in); err != nil {
		return Package{}, err
	}
	in.apply(&pkg)
	pkg.UpdatedAt = core.NowFunc()

	err = core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		pkg, err = svc.repo.UpdatePackage(ctx, pkg, in.ActivityIDs, tx)
		return err
	})
	if err != nil {
		return Package{}, errors.Wrap(err, "updating package")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return svc.withPrice(ctx, pkg)
}

func (svc *Service) save(ctx context.Context, pkg Package) (Package, error) {
	pkg.UpdatedAt = core.NowFunc()
	pkg, err := svc.repo.UpdatePackage(ctx, pkg, nil)
	if err != nil {
		return Package{}, errors.Wrap(err, "updating package")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return svc.withPrice(ctx, pkg)
}

func (svc *Service) ToggleActive(ctx context.Context, id string) (Package, error) {
	pkg, err := svc.repo.GetPackageByID(ctx, id)
	if err != nil {
		return Package{}, err
	}
	pkg.IsActive = !pkg.IsActive
	return svc.save(ctx, pkg)
}

func (svc *Service) ToggleFeatured(ctx context.Context, id string) (Package, error) {
	pkg, err := svc.repo.GetPackageByID(ctx, id)
	if err != nil {
		return Package{}, err
	}
	pkg.IsFeatured = !pkg.IsFeatured
	return svc.save(ctx, pkg)
}

func (svc *Service) SetImage(ctx context.Context, id, url string) (Package, error) {
	pkg, err := svc.repo.GetPackageByID(ctx, id)
	if err != nil {
		return Package{}, err
	}
	pkg.FeaturedImage = url
	return svc.save(ctx, pkg)
}

// Delete removes a Package that was never booked.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetPackageByID(ctx, id); err != nil {
		return err
	}
	n, err := svc.repo.CountBookings(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting package bookings")
	}
	if n > 0 {
		return ErrHasBookings
	}
	if err = svc.repo.DeletePackage(ctx, id); err != nil {
		return errors.Wrap(err, "deleting package")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return nil
}

// GetByID returns a Package with its effective price.
func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (Package, error) {
	pkg, err := svc.repo.GetPackageByID(ctx, id, exec...)
	if err != nil {
		return Package{}, err
	}
	return svc.withPrice(ctx, pkg, exec...)
}

func (svc *Service) GetDetail(ctx context.Context, id string) (PackageDetail, error) {
	pkg, err := svc.repo.GetPackageByID(ctx, id)
	if err != nil {
		return PackageDetail{}, err
	}

	detail := PackageDetail{Package: pkg}
	if detail.Destination, err = svc.dests.GetByID(ctx, pkg.DestinationID); err != nil {
		return PackageDetail{}, errors.Wrap(err, "finding package destination")
	}
	if pkg.TripTypeID.Valid {
		tt, err := svc.tripTypes.GetByID(ctx, pkg.TripTypeID.String)
		if err != nil && !core.IsNotFound(err) {
			return PackageDetail{}, errors.Wrap(err, "finding package trip type")
		} else if err == nil {
			detail.TripType = &tt
		}
	}
	if pkg.OfferID.Valid {
		o, err := svc.offers.GetByID(ctx, pkg.OfferID.String)
		if err != nil && !core.IsNotFound(err) {
			return PackageDetail{}, errors.Wrap(err, "finding package offer")
		} else if err == nil {
			detail.Offer = &o
		}
	}
	if detail.Activities, err = svc.repo.GetPackageActivities(ctx, id); err != nil {
		return PackageDetail{}, errors.Wrap(err, "finding package activities")
	}
	if detail.Activities == nil {
		detail.Activities = []activity.Activity{}
	}
	detail.EffectivePrice = pkg.ComputeEffectivePrice(detail.Offer, core.NowFunc())
	return detail, nil
}

// GetPublicDetail hides inactive packages and inactive activities, cached.
func (svc *Service) GetPublicDetail(ctx context.Context, id string) (PackageDetail, error) {
	key := fmt.Sprintf("%spackage:%s", core.CatalogCachePrefix, id)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		return svc.GetDetail(ctx, id)
	})
	if err != nil {
		return PackageDetail{}, err
	}
	detail := val.(PackageDetail)
	if !detail.IsActive || !detail.Destination.IsActive {
		return PackageDetail{}, ErrNotFound
	}
	acts := make([]activity.Activity, 0, len(detail.Activities))
	for _, a := range detail.Activities {
		if a.IsActive {
			acts = append(acts, a)
		}
	}
	detail.Activities = acts
	if detail.Offer != nil && !detail.Offer.IsValid(core.NowFunc()) {
		detail.Offer = nil
	}
	detail.EffectivePrice = detail.ComputeEffectivePrice(detail.Offer, core.NowFunc())
	return detail, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Package], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	return svc.query(ctx, filter, page, ordering)
}

func (svc *Service) query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Package], error) {
	pkgs, total, err := svc.repo.QueryPackages(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Package]{}, errors.Wrap(err, "querying packages")
	}
	if pkgs, err = svc.withPrices(ctx, pkgs); err != nil {
		return core.Paginated[Package]{}, err
	}
	return core.NewPaginated(pkgs, total, page), nil
}

// QueryPublic lists active packages for the public, cached.
func (svc *Service) QueryPublic(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Package], error) {
	active := true
	filter.IsActive = &active
	filter.Clean()
	page.Clean(PublicPageLimit, PublicMaxPageLimit)

	orderKeys := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderKeys = append(orderKeys, ord.String())
	}
	key := fmt.Sprintf("%spackages:%s:%s:%d:%d", core.CatalogCachePrefix, filter.cacheKey(), strings.Join(orderKeys, ","), page.Page, page.Limit)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		return svc.query(ctx, filter, page, ordering)
	})
	if err != nil {
		return core.Paginated[Package]{}, err
	}
	return val.(core.Paginated[Package]), nil
}

// Featured lists active featured packages, newest first.
func (svc *Service) Featured(ctx context.Context, limit int) ([]Package, error) {
	page := core.Page{Page: 1, Limit: limit}
	page.Clean(FeaturedLimit, FeaturedMaxLimit)
	active, featured := true, true
	filter := QueryFilter{IsActive: &active, IsFeatured: &featured}

	key := fmt.Sprintf("%sfeatured:%d", core.CatalogCachePrefix, page.Limit)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		res, err := svc.query(ctx, filter, page, []core.DBOrdering{{Field: "created_at"}})
		return res.Items, err
	})
	if err != nil {
		return nil, err
	}
	return val.([]Package), nil
}

// Suggestions returns active package titles matching term, prefix matches first.
func (svc *Service) Suggestions(ctx context.Context, term string) ([]Suggestion, error) {
	term = core.CleanString(term)
	if len([]rune(term)) < 2 {
		return []Suggestion{}, nil
	}
	key := fmt.Sprintf("%ssuggest:%s", core.CatalogCachePrefix, strings.ToLower(term))
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		sugs, err := svc.repo.Suggestions(ctx, term, MaxSuggestions)
		if err != nil {
			return nil, errors.Wrap(err, "finding suggestions")
		}
		if sugs == nil {
			sugs = []Suggestion{}
		}
		return sugs, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]Suggestion), nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := svc.repo.PackageStats(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "computing package stats")
	}
	stats.AveragePrice = core.RoundMoney(stats.AveragePrice)
	return stats, nil
}

// withPrice sets the effective price of pkg. A missing offer leaves the base price.
func (svc *Service) withPrice(ctx context.Context, pkg Package, exec ...core.DBExecutor) (Package, error) {
	pkg.EffectivePrice = pkg.Price
	if !pkg.OfferID.Valid {
		return pkg, nil
	}
	o, err := svc.loadOffer(ctx, pkg.OfferID.String, exec...)
	if err != nil {
		return Package{}, err
	}
	pkg.EffectivePrice = pkg.ComputeEffectivePrice(o, core.NowFunc())
	return pkg, nil
}

func (svc *Service) withPrices(ctx context.Context, pkgs []Package) ([]Package, error) {
	offers := make(map[string]*offer.Offer)
	now := core.NowFunc()
	for i := range pkgs {
		pkgs[i].EffectivePrice = pkgs[i].Price
		if !pkgs[i].OfferID.Valid {
			continue
		}
		id := pkgs[i].OfferID.String
		o, seen := offers[id]
		if !seen {
			var err error
			if o, err = svc.loadOffer(ctx, id); err != nil {
				return nil, err
			}
			offers[id] = o
		}
		pkgs[i].EffectivePrice = pkgs[i].ComputeEffectivePrice(o, now)
	}
	return pkgs, nil
}

// loadOffer returns nil when the offer no longer exists.
func (svc *Service) loadOffer(ctx context.Context, id string, exec ...core.DBExecutor) (*offer.Offer, error) {
	o, err := svc.offers.GetByID(ctx, id, exec...)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "finding package offer")
	}
	return &o, nil
}
