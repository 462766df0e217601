package activity

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
)

var ErrNotFound = core.NewNotFoundError("activity not found")

type (
	Repository interface {
		CreateActivity(ctx context.Context, act Activity, exec ...core.DBExecutor) (Activity, error)
		GetActivityByID(ctx context.Context, id string, exec ...core.DBExecutor) (Activity, error)
		// CountActivities returns how many of ids exist.
		CountActivities(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		QueryActivities(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Activity, int, error)
		UpdateActivity(ctx context.Context, act Activity, exec ...core.DBExecutor) (Activity, error)
		DeleteActivity(ctx context.Context, id string, exec ...core.DBExecutor) error
		ActivityStats(ctx context.Context, exec ...core.DBExecutor) (Stats, error)
		ActivityTypes(ctx context.Context, exec ...core.DBExecutor) ([]string, error)
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

func (svc *Service) save(ctx context.Context, act Activity, create bool) (Activity, error) {
	var err error
	if create {
		act, err = svc.repo.CreateActivity(ctx, act)
	} else {
		act, err = svc.repo.UpdateActivity(ctx, act)
	}
	if err != nil {
		return Activity{}, errors.Wrap(err, "saving activity")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return act, nil
}

func (svc *Service) Create(ctx context.Context, in Input) (Activity, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Activity{}, err
	}
	now := core.NowFunc()
	act := Activity{ID: uuid.New().String(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(&act)
	return svc.save(ctx, act, true)
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (Activity, error) {
	if err := in.Validate(svc.validate); err != nil {
		return Activity{}, err
	}
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	in.apply(&act)
	act.UpdatedAt = core.NowFunc()
	return svc.save(ctx, act, false)
}

func (svc *Service) ToggleStatus(ctx context.Context, id string) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	act.IsActive = !act.IsActive
	act.UpdatedAt = core.NowFunc()
	return svc.save(ctx, act, false)
}

func (svc *Service) SetImage(ctx context.Context, id, url string) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	act.FeaturedImage = url
	act.UpdatedAt = core.NowFunc()
	return svc.save(ctx, act, false)
}

// Delete removes an Activity, unlinking it from packages.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetActivityByID(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteActivity(ctx, id); err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	svc.cache.InvalidatePrefix(core.CatalogCachePrefix)
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Activity, error) {
	return svc.repo.GetActivityByID(ctx, id)
}

func (svc *Service) GetActive(ctx context.Context, id string) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if !act.IsActive {
		return Activity{}, ErrNotFound
	}
	return act, nil
}

// CheckExist fails with a validation error on `activity_ids` unless every id exists.
func (svc *Service) CheckExist(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.CountActivities(ctx, ids, exec...)
	if err != nil {
		return errors.Wrap(err, "counting activities")
	}
	if n != len(ids) {
		return core.NewFieldError("activity_ids", "unknown activities")
	}
	return nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Activity], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	acts, total, err := svc.repo.QueryActivities(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Activity]{}, errors.Wrap(err, "querying activities")
	}
	return core.NewPaginated(acts, total, page), nil
}

func (svc *Service) QueryActive(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[Activity], error) {
	active := true
	filter.IsActive = &active
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	key := fmt.Sprintf("%sactivities:%s:%s:%s:%d:%d",
		core.CatalogCachePrefix, filter.Search, filter.ActivityType, filter.DifficultyLevel, page.Page, page.Limit)
	val, err := svc.cache.GetOrLoad(ctx, key, 0, func(ctx context.Context) (interface{}, error) {
		return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "name", Ascending: true}})
	})
	if err != nil {
		return core.Paginated[Activity]{}, err
	}
	return val.(core.Paginated[Activity]), nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := svc.repo.ActivityStats(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "computing activity stats")
	}
	stats.Inactive = stats.Total - stats.Active
	if stats.ByType == nil {
		stats.ByType = []TypeCount{}
	}
	return stats, nil
}

func (svc *Service) Types(ctx context.Context) ([]string, error) {
	types, err := svc.repo.ActivityTypes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing activity types")
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}

func (svc *Service) Difficulties() []string {
	return core.Difficulties
}
