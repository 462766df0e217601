package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
)

type activityRepository struct {
	repo
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(exec core.DBExecutor) *activityRepository {
	return &activityRepository{repo{exec: exec}}
}

var activityOrdering = fields("name", "activity_type", "duration_hours", "difficulty_level", "created_at", "updated_at")

func (r activityRepository) CreateActivity(ctx context.Context, act activity.Activity, exec ...core.DBExecutor) (activity.Activity, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO activities (id, name, description, activity_type, duration_hours, difficulty_level, age_restriction,
		                        featured_image, is_active, created_at, updated_at)
		VALUES (:id, :name, :description, :activity_type, :duration_hours, :difficulty_level, :age_restriction,
		        :featured_image, :is_active, :created_at, :updated_at)`, act)
	if err != nil {
		return activity.Activity{}, err
	}
	return act, nil
}

func (r activityRepository) GetActivityByID(ctx context.Context, id string, exec ...core.DBExecutor) (activity.Activity, error) {
	var act activity.Activity
	err := get(ctx, r.getExec(exec), activity.ErrNotFound, &act, "SELECT * FROM activities WHERE id = ?", id)
	return act, err
}

func (r activityRepository) CountActivities(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	e := r.getExec(exec)
	q, args, err := in(e, "SELECT COUNT(*) FROM activities WHERE id IN (?)", ids)
	if err != nil {
		return 0, err
	}
	var n int
	err = e.GetContext(ctx, &n, q, args...)
	return n, err
}

func (r activityRepository) QueryActivities(ctx context.Context, filter activity.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]activity.Activity, int, error) {
	var where core.Where
	where.Search(filter.Search, "name", "description", "activity_type")
	if filter.ActivityType != "" {
		where.Add("LOWER(activity_type) = ?", filter.ActivityType)
	}
	if filter.DifficultyLevel != "" {
		where.Add("difficulty_level = ?", filter.DifficultyLevel)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	return queryPage[activity.Activity](ctx, r.getExec(exec), "SELECT * FROM activities", &where, ordering, activityOrdering, "name ASC", page)
}

func (r activityRepository) UpdateActivity(ctx context.Context, act activity.Activity, exec ...core.DBExecutor) (activity.Activity, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE activities SET name = :name, description = :description, activity_type = :activity_type,
		                      duration_hours = :duration_hours, difficulty_level = :difficulty_level,
		                      age_restriction = :age_restriction, featured_image = :featured_image,
		                      is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, act)
	if err != nil {
		return activity.Activity{}, err
	}
	if err = execOne(ctx, e, activity.ErrNotFound, q, args...); err != nil {
		return activity.Activity{}, err
	}
	return act, nil
}

func (r activityRepository) DeleteActivity(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), activity.ErrNotFound, "DELETE FROM activities WHERE id = ?", id)
}

func (r activityRepository) ActivityStats(ctx context.Context, exec ...core.DBExecutor) (activity.Stats, error) {
	e := r.getExec(exec)
	var counts struct {
		Total  int `db:"total"`
		Active int `db:"active"`
	}
	err := e.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active
		FROM activities`)
	if err != nil {
		return activity.Stats{}, errors.Wrap(err, "counting activities")
	}

	stats := activity.Stats{Total: counts.Total, Active: counts.Active, Inactive: counts.Total - counts.Active}
	err = e.SelectContext(ctx, &stats.ByType, `
		SELECT activity_type, COUNT(*) AS count FROM activities
		GROUP BY activity_type ORDER BY count DESC, activity_type`)
	if err != nil {
		return activity.Stats{}, errors.Wrap(err, "counting activities by type")
	}
	if stats.ByType == nil {
		stats.ByType = []activity.TypeCount{}
	}
	return stats, nil
}

func (r activityRepository) ActivityTypes(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	var types []string
	err := selectAll(ctx, r.getExec(exec), &types,
		"SELECT DISTINCT activity_type FROM activities WHERE activity_type <> '' ORDER BY activity_type")
	return types, err
}
