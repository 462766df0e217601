package triptype

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("trip type not found")
	ErrNameExists = core.NewConflictError("a trip type with this name already exists")
	ErrInUse      = core.NewConflictError("trip type is used by packages")
)

type (
	Repository interface {
		NameExists(ctx context.Context, name, excludedID string, exec ...core.DBExecutor) (bool, error)
		CreateTripType(ctx context.Context, tt TripType, exec ...core.DBExecutor) (TripType, error)
		GetTripTypeByID(ctx context.Context, id string, exec ...core.DBExecutor) (TripType, error)
		QueryTripTypes(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]TripType, int, error)
		UpdateTripType(ctx context.Context, tt TripType, exec ...core.DBExecutor) (TripType, error)
		DeleteTripType(ctx context.Context, id string, exec ...core.DBExecutor) error
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

func (svc *Service) checkName(ctx context.Context, name, excludedID string) error {
	exists, err := svc.repo.NameExists(ctx, name, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking trip type name")
	}
	if exists {
		return ErrNameExists
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, in Input) (TripType, error) {
	if err := in.Validate(svc.validate); err != nil {
		return TripType{}, err
	}
	if err := svc.checkName(ctx, in.Name, ""); err != nil {
		return TripType{}, err
	}
	now := core.NowFunc()
	tt := TripType{ID: uuid.New().String(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&tt)
	tt, err := svc.repo.CreateTripType(ctx, tt)
	if err != nil {
		return TripType{}, errors.Wrap(err, "creating trip type")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return tt, nil
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (TripType, error) {
	if err := in.Validate(svc.validate); err != nil {
		return TripType{}, err
	}
	tt, err := svc.repo.GetTripTypeByID(ctx, id)
	if err != nil {
		return TripType{}, err
	}
	if err = svc.checkName(ctx, in.Name, id); err != nil {
		return TripType{}, err
	}
	in.apply(&tt)
	tt.UpdatedAt = core.NowFunc()
	if tt, err = svc.repo.UpdateTripType(ctx, tt); err != nil {
		return TripType{}, errors.Wrap(err, "updating trip type")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return tt, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	tt, err := svc.repo.GetTripTypeByID(ctx, id)
	if err != nil {
		return err
	}
	if tt.PackageCount > 0 {
		return ErrInUse
	}
	if err = svc.repo.DeleteTripType(ctx, id); err != nil {
		return errors.Wrap(err, "deleting trip type")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (TripType, error) {
	return svc.repo.GetTripTypeByID(ctx, id)
}

func (svc *Service) GetActive(ctx context.Context, id string) (TripType, error) {
	tt, err := svc.repo.GetTripTypeByID(ctx, id)
	if err != nil {
		return TripType{}, err
	}
	if !tt.IsActive {
		return TripType{}, ErrNotFound
	}
	return tt, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[TripType], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	tts, total, err := svc.repo.QueryTripTypes(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[TripType]{}, errors.Wrap(err, "querying trip types")
	}
	return core.NewPaginated(tts, total, page), nil
}

func (svc *Service) QueryActive(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[TripType], error) {
	active := true
	filter.IsActive = &active
	filter.Clean()
	page.Clean(core.MaxPageLimit, core.MaxPageLimit)
	key := fmt.Sprintf("%strip-types:%s:%s:%d:%d", core.CatalogCachePrefix, filter.Search, filter.Category, page.Page, page.Limit)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "name", Ascending: true}})
	})
	if err != nil {
		return core.Paginated[TripType]{}, err
	}
	return val.(core.Paginated[TripType]), nil
}
