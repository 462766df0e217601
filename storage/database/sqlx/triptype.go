package sqlxrepos

import (
	"context"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/triptype"
)

type tripTypeRepository struct {
	repo
}

var _ triptype.Repository = (*tripTypeRepository)(nil) // interface compliance check

func NewTripTypeRepository(exec core.DBExecutor) *tripTypeRepository {
	return &tripTypeRepository{repo{exec: exec}}
}

const tripTypeSelect = `
	SELECT tt.*, (SELECT COUNT(*) FROM packages p WHERE p.trip_type_id = tt.id) AS package_count
	FROM trip_types tt`

var tripTypeOrdering = fields("name", "category", "package_count", "created_at")

func (r tripTypeRepository) NameExists(ctx context.Context, name, excludedID string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, r.getExec(exec), "SELECT id FROM trip_types WHERE LOWER(name) = LOWER(?) AND id <> ?", name, excludedID)
}

func (r tripTypeRepository) CreateTripType(ctx context.Context, tt triptype.TripType, exec ...core.DBExecutor) (triptype.TripType, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO trip_types (id, name, description, category, is_active, created_at, updated_at)
		VALUES (:id, :name, :description, :category, :is_active, :created_at, :updated_at)`, tt)
	if err != nil {
		return triptype.TripType{}, err
	}
	return tt, nil
}

func (r tripTypeRepository) GetTripTypeByID(ctx context.Context, id string, exec ...core.DBExecutor) (triptype.TripType, error) {
	var tt triptype.TripType
	err := get(ctx, r.getExec(exec), triptype.ErrNotFound, &tt, tripTypeSelect+" WHERE tt.id = ?", id)
	return tt, err
}

func (r tripTypeRepository) QueryTripTypes(ctx context.Context, filter triptype.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]triptype.TripType, int, error) {
	var where core.Where
	where.Search(filter.Search, "name", "description")
	if filter.Category != "" {
		where.Add("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	return queryPage[triptype.TripType](ctx, r.getExec(exec), tripTypeSelect, &where, ordering, tripTypeOrdering, "name ASC", page)
}

func (r tripTypeRepository) UpdateTripType(ctx context.Context, tt triptype.TripType, exec ...core.DBExecutor) (triptype.TripType, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE trip_types SET name = :name, description = :description, category = :category,
		                      is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, tt)
	if err != nil {
		return triptype.TripType{}, err
	}
	if err = execOne(ctx, e, triptype.ErrNotFound, q, args...); err != nil {
		return triptype.TripType{}, err
	}
	return tt, nil
}

func (r tripTypeRepository) DeleteTripType(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), triptype.ErrNotFound, "DELETE FROM trip_types WHERE id = ?", id)
}
