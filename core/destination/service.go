package destination

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("destination not found")
	ErrInUse    = core.NewConflictError("destination is used by packages")
)

type (
	Repository interface {
		CreateDestination(ctx context.Context, dest Destination, exec ...core.DBExecutor) (Destination, error)
		// GetDestinationByID also counts the packages going to the destination.
		GetDestinationByID(ctx context.Context, id string, exec ...core.DBExecutor) (Destination, error)
		// QueryDestinations applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Destination.Name, Destination.Country or Destination.City.
		QueryDestinations(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Destination, int, error)
		UpdateDestination(ctx context.Context, dest Destination, exec ...core.DBExecutor) (Destination, error)
		DeleteDestination(ctx context.Context, id string, exec ...core.DBExecutor) error
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

func (svc *Service) invalidate() {
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
}

func (svc *Service) Create(ctx context.Context, adminID string, in Input) (Destination, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Destination{}, err
	}
	now := core.NowFunc()
	dest := Destination{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedBy: null.NewString(adminID, adminID != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&dest)
	dest, err := svc.repo.CreateDestination(ctx, dest)
	if err != nil {
		return Destination{}, errors.Wrap(err, "creating destination")
	}
	svc.invalidate()
	return dest, nil
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (Destination, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Destination{}, err
	}
	dest, err := svc.repo.GetDestinationByID(ctx, id)
	if err != nil {
		return Destination{}, err
	}
	in.apply(&dest)
	dest.UpdatedAt = core.NowFunc()
	if dest, err = svc.repo.UpdateDestination(ctx, dest); err != nil {
		return Destination{}, errors.Wrap(err, "updating destination")
	}
	svc.invalidate()
	return dest, nil
}

func (svc *Service) SetImage(ctx context.Context, id, url string) (Destination, error) {
	dest, err := svc.repo.GetDestinationByID(ctx, id)
	if err != nil {
		return Destination{}, err
	}
	dest.FeaturedImage = url
	dest.UpdatedAt = core.NowFunc()
	if dest, err = svc.repo.UpdateDestination(ctx, dest); err != nil {
		return Destination{}, errors.Wrap(err, "updating destination image")
	}
	svc.invalidate()
	return dest, nil
}

// Delete removes a Destination that no package goes to.
func (svc *Service) Delete(ctx context.Context, id string) error {
	dest, err := svc.repo.GetDestinationByID(ctx, id)
	if err != nil {
		return err
	}
	if dest.PackageCount > 0 {
		return ErrInUse
	}
	if err = svc.repo.DeleteDestination(ctx, id); err != nil {
		return errors.Wrap(err, "deleting destination")
	}
	svc.invalidate()
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Destination, error) {
	return svc.repo.GetDestinationByID(ctx, id)
}

// GetActive hides inactive destinations from the public.
func (svc *Service) GetActive(ctx context.Context, id string) (Destination, error) {
	key := fmt.Sprintf("%sdestination:%s", core.CatalogCachePrefix, id)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		return svc.repo.GetDestinationByID(ctx, id)
	})
	if err != nil {
		return Destination{}, err
	}
	dest := val.(Destination)
	if !dest.IsActive {
		return Destination{}, ErrNotFound
	}
	return dest, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Destination], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	dests, total, err := svc.repo.QueryDestinations(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Destination]{}, errors.Wrap(err, "querying destinations")
	}
	return core.NewPaginated(dests, total, page), nil
}

// QueryActive lists active destinations for the public, cached.
func (svc *Service) QueryActive(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[Destination], error) {
	active := true
	filter.IsActive = &active
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	key := fmt.Sprintf("%sdestinations:%s:%s:%d:%d", core.CatalogCachePrefix, filter.Search, filter.Country, page.Page, page.Limit)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "name", Ascending: true}})
	})
	if err != nil {
		return core.Paginated[Destination]{}, err
	}
	return val.(core.Paginated[Destination]), nil
}
