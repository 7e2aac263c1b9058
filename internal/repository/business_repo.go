package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/bizdir_api/internal/models"
)

// BusinessRepository runs location-scoped business searches.
type BusinessRepository struct {
	db *sqlx.DB
}

// NewBusinessRepository creates a new BusinessRepository.
func NewBusinessRepository(db *sqlx.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// SearchBusinesses returns active businesses matching q inside scope.
// A nil scope searches every location.
func (r *BusinessRepository) SearchBusinesses(ctx context.Context, q models.BusinessQuery, scope *models.LocationFilter) ([]models.Business, error) {
	query := `SELECT b.id, b.name, b.slug, b.category_slug, b.city_id,
	          c.region_id, r.country_id, b.created_at
	          FROM businesses b
	          JOIN cities c ON c.id = b.city_id
	          JOIN regions r ON r.id = c.region_id
	          WHERE b.is_active = true`
	args := []interface{}{}
	argIdx := 1

	if scope != nil {
		switch scope.Type {
		case models.LocationCity:
			query += fmt.Sprintf(" AND b.city_id = $%d", argIdx)
		case models.LocationRegion:
			query += fmt.Sprintf(" AND c.region_id = $%d", argIdx)
		case models.LocationCountry:
			query += fmt.Sprintf(" AND r.country_id = $%d", argIdx)
		default:
			return nil, fmt.Errorf("unknown location type %q", scope.Type)
		}
		args = append(args, scope.ID)
		argIdx++
	}
	if q.Text != "" {
		query += fmt.Sprintf(" AND (b.name ILIKE $%d ESCAPE '\\' OR b.description ILIKE $%d ESCAPE '\\')", argIdx, argIdx)
		args = append(args, likePattern(q.Text))
		argIdx++
	}
	if q.Category != "" {
		query += fmt.Sprintf(" AND b.category_slug = $%d", argIdx)
		args = append(args, q.Category)
		argIdx++
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	query += fmt.Sprintf(" ORDER BY b.created_at DESC, b.id LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	var businesses []models.Business
	if err := r.db.SelectContext(ctx, &businesses, query, args...); err != nil {
		return nil, err
	}
	return businesses, nil
}
