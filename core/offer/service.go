package offer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

// ExpiringWindow is how far ahead an offer counts as expiring soon.
const ExpiringWindow = 7 * 24 * time.Hour

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("offer not found")
	ErrUsageLimit = core.NewConflictError("offer usage limit reached")
)

type (
	Repository interface {
		CreateOffer(ctx context.Context, o Offer, exec ...core.DBExecutor) (Offer, error)
		GetOfferByID(ctx context.Context, id string, exec ...core.DBExecutor) (Offer, error)
		// QueryOffers applies AND operation on available QueryFilter fields.
		// A non-zero QueryFilter.ValidAt keeps active offers valid at that time and below their usage limit.
		QueryOffers(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Offer, int, error)
		UpdateOffer(ctx context.Context, o Offer, exec ...core.DBExecutor) (Offer, error)
		DeleteOffer(ctx context.Context, id string, exec ...core.DBExecutor) error
		// IncrementUsage atomically bumps the usage count, failing with ErrUsageLimit once the limit is reached.
		IncrementUsage(ctx context.Context, id string, exec ...core.DBExecutor) error
		OfferStats(ctx context.Context, now, expiringBefore time.Time, exec ...core.DBExecutor) (Stats, error)
	}

	Service struct {
		repo     Repository
		cache    core.Cache
		validate *validator.Validate
	}
)

func NewService(repo Repository, cache core.Cache, validate *validator.Validate) *Service {
	return &Service{repo: repo, cache: cache, validate: validate}
}

func (svc *Service) Create(ctx context.Context, in Input) (Offer, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Offer{}, err
	}
	now := core.NowFunc()
	o := Offer{ID: uuid.New().String(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&o)
	o, err := svc.repo.CreateOffer(ctx, o)
	if err != nil {
		return Offer{}, errors.Wrap(err, "creating offer")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return o, nil
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (Offer, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Offer{}, err
	}
	o, err := svc.repo.GetOfferByID(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	in.apply(&o)
	return svc.update(ctx, o)
}

func (svc *Service) update(ctx context.Context, o Offer) (Offer, error) {
	o.UpdatedAt = core.NowFunc()
	o, err := svc.repo.UpdateOffer(ctx, o)
	if err != nil {
		return Offer{}, errors.Wrap(err, "updating offer")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return o, nil
}

func (svc *Service) ToggleActive(ctx context.Context, id string) (Offer, error) {
	o, err := svc.repo.GetOfferByID(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	o.IsActive = !o.IsActive
	return svc.update(ctx, o)
}

// Delete removes an Offer; packages using it keep their base price.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetOfferByID(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteOffer(ctx, id); err != nil {
		return errors.Wrap(err, "deleting offer")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (Offer, error) {
	return svc.repo.GetOfferByID(ctx, id, exec...)
}

// GetValid hides offers that cannot currently be applied.
func (svc *Service) GetValid(ctx context.Context, id string) (Offer, error) {
	o, err := svc.repo.GetOfferByID(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	if !o.IsValid(core.NowFunc()) {
		return Offer{}, ErrNotFound
	}
	return o, nil
}

// Use counts one more application of the offer.
func (svc *Service) Use(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return svc.repo.IncrementUsage(ctx, id, exec...)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Offer], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	offers, total, err := svc.repo.QueryOffers(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Offer]{}, errors.Wrap(err, "querying offers")
	}
	return core.NewPaginated(offers, total, page), nil
}

// QueryValid lists the offers that can be applied right now, ending soonest first.
func (svc *Service) QueryValid(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[Offer], error) {
	filter.ValidAt = core.NowFunc()
	return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "valid_until", Ascending: true}})
}

// QueryValidCached is QueryValid for the public, cached.
func (svc *Service) QueryValidCached(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[Offer], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	key := fmt.Sprintf("%soffers:%s:%d:%d", core.CatalogCachePrefix, filter.Search, page.Page, page.Limit)
	// short ttl: validity depends on the clock
	val, err := svc.cache.GetOrLoad(ctx, key, time.Minute, func(ctx context.Context) (interface{}, error) {
		return svc.QueryValid(ctx, filter, page)
	})
	if err != nil {
		return core.Paginated[Offer]{}, err
	}
	return val.(core.Paginated[Offer]), nil
}

// QueryExpiringSoon lists valid offers ending within ExpiringWindow.
func (svc *Service) QueryExpiringSoon(ctx context.Context, page core.Page) (core.Paginated[Offer], error) {
	now := core.NowFunc()
	filter := QueryFilter{ValidAt: now, ExpiringBefore: now.Add(ExpiringWindow)}
	return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "valid_until", Ascending: true}})
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	now := core.NowFunc()
	stats, err := svc.repo.OfferStats(ctx, now, now.Add(ExpiringWindow))
	return stats, errors.Wrap(err, "computing offer stats")
}
