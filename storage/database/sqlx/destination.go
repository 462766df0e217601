package sqlxrepos

import (
	"context"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/destination"
)

type destinationRepository struct {
	repo
}

var _ destination.Repository = (*destinationRepository)(nil) // interface compliance check

func NewDestinationRepository(exec core.DBExecutor) *destinationRepository {
	return &destinationRepository{repo{exec: exec}}
}

const destinationSelect = `
	SELECT d.*, (SELECT COUNT(*) FROM packages p WHERE p.destination_id = d.id) AS package_count
	FROM destinations d`

var destinationOrdering = fields("name", "country", "city", "package_count", "created_at", "updated_at")

func (r destinationRepository) CreateDestination(ctx context.Context, dest destination.Destination, exec ...core.DBExecutor) (destination.Destination, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO destinations (id, name, country, city, description, best_time_to_visit, featured_image, is_active,
		                          created_by, created_at, updated_at)
		VALUES (:id, :name, :country, :city, :description, :best_time_to_visit, :featured_image, :is_active,
		        :created_by, :created_at, :updated_at)`, dest)
	if err != nil {
		return destination.Destination{}, err
	}
	return dest, nil
}

func (r destinationRepository) GetDestinationByID(ctx context.Context, id string, exec ...core.DBExecutor) (destination.Destination, error) {
	var dest destination.Destination
	err := get(ctx, r.getExec(exec), destination.ErrNotFound, &dest, destinationSelect+" WHERE d.id = ?", id)
	return dest, err
}

func (r destinationRepository) QueryDestinations(ctx context.Context, filter destination.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]destination.Destination, int, error) {
	var where core.Where
	where.Search(filter.Search, "name", "country", "city")
	if filter.Country != "" {
		where.Add("LOWER(country) = LOWER(?)", filter.Country)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	return queryPage[destination.Destination](ctx, r.getExec(exec), destinationSelect, &where, ordering, destinationOrdering, "name ASC", page)
}

func (r destinationRepository) UpdateDestination(ctx context.Context, dest destination.Destination, exec ...core.DBExecutor) (destination.Destination, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE destinations SET name = :name, country = :country, city = :city, description = :description,
		                        best_time_to_visit = :best_time_to_visit, featured_image = :featured_image,
		                        is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, dest)
	if err != nil {
		return destination.Destination{}, err
	}
	if err = execOne(ctx, e, destination.ErrNotFound, q, args...); err != nil {
		return destination.Destination{}, err
	}
	return dest, nil
}

func (r destinationRepository) DeleteDestination(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), destination.ErrNotFound, "DELETE FROM destinations WHERE id = ?", id)
}
