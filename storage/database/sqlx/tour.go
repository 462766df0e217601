package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/tour"
)

type packageRepository struct {
	repo
}

var _ tour.Repository = (*packageRepository)(nil) // interface compliance check

func NewPackageRepository(exec core.DBExecutor) *packageRepository {
	return &packageRepository{repo{exec: exec}}
}

const packageSelect = `
	SELECT p.*, d.name AS destination_name
	FROM packages p JOIN destinations d ON d.id = p.destination_id`

var packageOrdering = fields("title", "price", "duration_days", "destination_name", "created_at", "updated_at")

func (r packageRepository) setActivities(ctx context.Context, exec core.DBExecutor, id string, activityIDs []string) error {
	if _, err := exec.ExecContext(ctx, exec.Rebind("DELETE FROM package_activities WHERE package_id = ?"), id); err != nil {
		return errors.Wrap(err, "clearing package activities")
	}
	for _, actID := range activityIDs {
		_, err := exec.ExecContext(ctx, exec.Rebind("INSERT INTO package_activities (package_id, activity_id) VALUES (?, ?)"), id, actID)
		if err != nil {
			return errors.Wrap(err, "linking package activity")
		}
	}
	return nil
}

func (r packageRepository) CreatePackage(ctx context.Context, pkg tour.Package, activityIDs []string, exec ...core.DBExecutor) (tour.Package, error) {
	e := r.getExec(exec)
	err := namedExec(ctx, e, `
		INSERT INTO packages (id, title, description, price, duration_days, duration_nights, destination_id, trip_type_id,
		                      offer_id, difficulty, featured_image, is_featured, is_active, highlights, itinerary,
		                      inclusions, exclusions, terms_conditions, max_group_size, available_from, available_until,
		                      created_at, updated_at)
		VALUES (:id, :title, :description, :price, :duration_days, :duration_nights, :destination_id, :trip_type_id,
		        :offer_id, :difficulty, :featured_image, :is_featured, :is_active, :highlights, :itinerary,
		        :inclusions, :exclusions, :terms_conditions, :max_group_size, :available_from, :available_until,
		        :created_at, :updated_at)`, pkg)
	if err != nil {
		return tour.Package{}, err
	}
	if err = r.setActivities(ctx, e, pkg.ID, activityIDs); err != nil {
		return tour.Package{}, err
	}
	return r.GetPackageByID(ctx, pkg.ID, e)
}

func (r packageRepository) GetPackageByID(ctx context.Context, id string, exec ...core.DBExecutor) (tour.Package, error) {
	var pkg tour.Package
	err := get(ctx, r.getExec(exec), tour.ErrNotFound, &pkg, packageSelect+" WHERE p.id = ?", id)
	return pkg, err
}

func (r packageRepository) QueryPackages(ctx context.Context, filter tour.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]tour.Package, int, error) {
	var where core.Where
	where.Search(filter.Search, "title", "description", "destination_name")
	if filter.DestinationID != "" {
		where.Add("destination_id = ?", filter.DestinationID)
	}
	if filter.TripTypeID != "" {
		where.Add("trip_type_id = ?", filter.TripTypeID)
	}
	if filter.Difficulty != "" {
		where.Add("difficulty = ?", filter.Difficulty)
	}
	if filter.MinPrice != nil {
		where.Add("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where.Add("price <= ?", *filter.MaxPrice)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	if filter.IsFeatured != nil {
		where.Add("is_featured = ?", *filter.IsFeatured)
	}
	return queryPage[tour.Package](ctx, r.getExec(exec), packageSelect, &where, ordering, packageOrdering, "created_at DESC", page)
}

func (r packageRepository) UpdatePackage(ctx context.Context, pkg tour.Package, activityIDs []string, exec ...core.DBExecutor) (tour.Package, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE packages SET title = :title, description = :description, price = :price, duration_days = :duration_days,
		                    duration_nights = :duration_nights, destination_id = :destination_id,
		                    trip_type_id = :trip_type_id, offer_id = :offer_id, difficulty = :difficulty,
		                    featured_image = :featured_image, is_featured = :is_featured, is_active = :is_active,
		                    highlights = :highlights, itinerary = :itinerary, inclusions = :inclusions,
		                    exclusions = :exclusions, terms_conditions = :terms_conditions,
		                    max_group_size = :max_group_size, available_from = :available_from,
		                    available_until = :available_until, updated_at = :updated_at
		WHERE id = :id`, pkg)
	if err != nil {
		return tour.Package{}, err
	}
	if err = execOne(ctx, e, tour.ErrNotFound, q, args...); err != nil {
		return tour.Package{}, err
	}
	if activityIDs != nil {
		if err = r.setActivities(ctx, e, pkg.ID, activityIDs); err != nil {
			return tour.Package{}, err
		}
	}
	return r.GetPackageByID(ctx, pkg.ID, e)
}

func (r packageRepository) DeletePackage(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), tour.ErrNotFound, "DELETE FROM packages WHERE id = ?", id)
}

func (r packageRepository) CountBookings(ctx context.Context, id string, exec ...core.DBExecutor) (int, error) {
	var n int
	err := get(ctx, r.getExec(exec), nil, &n, "SELECT COUNT(*) FROM bookings WHERE package_id = ?", id)
	return n, err
}

func (r packageRepository) GetPackageActivities(ctx context.Context, id string, exec ...core.DBExecutor) ([]activity.Activity, error) {
	var acts []activity.Activity
	err := selectAll(ctx, r.getExec(exec), &acts, `
		SELECT a.* FROM activities a JOIN package_activities pa ON pa.activity_id = a.id
		WHERE pa.package_id = ? ORDER BY a.name`, id)
	return acts, err
}

// Suggestions matches active package titles, prefix matches first.
func (r packageRepository) Suggestions(ctx context.Context, term string, limit int, exec ...core.DBExecutor) ([]tour.Suggestion, error) {
	term = strings.ToLower(term)
	var sugs []tour.Suggestion
	err := selectAll(ctx, r.getExec(exec), &sugs, `
		SELECT p.id, p.title, d.name AS destination_name
		FROM packages p JOIN destinations d ON d.id = p.destination_id
		WHERE p.is_active = ? AND d.is_active = ? AND LOWER(p.title) LIKE ?
		ORDER BY CASE WHEN LOWER(p.title) LIKE ? THEN 0 ELSE 1 END, p.title
		LIMIT ?`, true, true, "%"+term+"%", term+"%", limit)
	return sugs, err
}

func (r packageRepository) PackageStats(ctx context.Context, exec ...core.DBExecutor) (tour.Stats, error) {
	var stats tour.Stats
	err := get(ctx, r.getExec(exec), nil, &stats, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active,
		       COALESCE(SUM(CASE WHEN is_featured THEN 1 ELSE 0 END), 0) AS featured,
		       COALESCE(AVG(price), 0) AS average_price
		FROM packages`)
	return stats, err
}
