package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/bizdir_api/internal/models"
)

// TerritoryRepository handles database operations for the administrative
// hierarchy (countries, regions, cities). Every list is returned in catalog
// insertion order.
type TerritoryRepository struct {
	db *sqlx.DB
}

// NewTerritoryRepository creates a new TerritoryRepository
func NewTerritoryRepository(db *sqlx.DB) *TerritoryRepository {
	return &TerritoryRepository{db: db}
}

// ListCountries returns all countries
func (r *TerritoryRepository) ListCountries(ctx context.Context) ([]models.Country, error) {
	const q = `SELECT id, name, slug FROM countries ORDER BY seq`

	var countries []models.Country
	if err := r.db.SelectContext(ctx, &countries, q); err != nil {
		return nil, err
	}
	return countries, nil
}

// ListRegions returns all regions
func (r *TerritoryRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	const q = `SELECT id, name, slug, country_id FROM regions ORDER BY seq`

	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, q); err != nil {
		return nil, err
	}
	return regions, nil
}

// cityRow is a city joined with its region and country.
type cityRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Slug        string `db:"slug"`
	RegionID    string `db:"region_id"`
	RegionName  string `db:"region_name"`
	RegionSlug  string `db:"region_slug"`
	CountryID   string `db:"country_id"`
	CountryName string `db:"country_name"`
	CountrySlug string `db:"country_slug"`
}

func (row cityRow) toModel() models.City {
	return models.City{
		ID:       row.ID,
		Name:     row.Name,
		Slug:     row.Slug,
		RegionID: row.RegionID,
		Region: &models.RegionRef{
			Region: models.Region{
				ID:        row.RegionID,
				Name:      row.RegionName,
				Slug:      row.RegionSlug,
				CountryID: row.CountryID,
			},
			Country: &models.Country{
				ID:   row.CountryID,
				Name: row.CountryName,
				Slug: row.CountrySlug,
			},
		},
	}
}

const citySelect = `SELECT c.id, c.name, c.slug, c.region_id,
	          r.name AS region_name, r.slug AS region_slug,
	          co.id AS country_id, co.name AS country_name, co.slug AS country_slug
	          FROM cities c
	          JOIN regions r ON r.id = c.region_id
	          JOIN countries co ON co.id = r.country_id`

// ListCities returns all cities with their region and country denormalized
func (r *TerritoryRepository) ListCities(ctx context.Context) ([]models.City, error) {
	var rows []cityRow
	if err := r.db.SelectContext(ctx, &rows, citySelect+` ORDER BY c.seq`); err != nil {
		return nil, err
	}
	cities := make([]models.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, row.toModel())
	}
	return cities, nil
}

// ListRegionsByCountry returns the regions of one country
func (r *TerritoryRepository) ListRegionsByCountry(ctx context.Context, countryID string) ([]models.Region, error) {
	const q = `SELECT id, name, slug, country_id FROM regions WHERE country_id = $1 ORDER BY seq`

	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, q, countryID); err != nil {
		return nil, err
	}
	return regions, nil
}

// ListCitiesByRegion returns the cities of one region
func (r *TerritoryRepository) ListCitiesByRegion(ctx context.Context, regionID string) ([]models.City, error) {
	var rows []cityRow
	if err := r.db.SelectContext(ctx, &rows, citySelect+` WHERE c.region_id = $1 ORDER BY c.seq`, regionID); err != nil {
		return nil, err
	}
	cities := make([]models.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, row.toModel())
	}
	return cities, nil
}

// SearchCountries returns countries whose name contains text (case-insensitive)
func (r *TerritoryRepository) SearchCountries(ctx context.Context, text string, limit int) ([]models.Country, error) {
	const q = `SELECT id, name, slug FROM countries
	          WHERE name ILIKE $1 ESCAPE '\' ORDER BY seq LIMIT $2`

	var countries []models.Country
	if err := r.db.SelectContext(ctx, &countries, q, likePattern(text), limit); err != nil {
		return nil, err
	}
	return countries, nil
}

// SearchRegions returns regions whose name contains text (case-insensitive)
func (r *TerritoryRepository) SearchRegions(ctx context.Context, text string, limit int) ([]models.Region, error) {
	const q = `SELECT id, name, slug, country_id FROM regions
	          WHERE name ILIKE $1 ESCAPE '\' ORDER BY seq LIMIT $2`

	var regions []models.Region
	if err := r.db.SelectContext(ctx, &regions, q, likePattern(text), limit); err != nil {
		return nil, err
	}
	return regions, nil
}

// SearchCities returns cities whose name contains text (case-insensitive)
func (r *TerritoryRepository) SearchCities(ctx context.Context, text string, limit int) ([]models.City, error) {
	var rows []cityRow
	q := citySelect + ` WHERE c.name ILIKE $1 ESCAPE '\' ORDER BY c.seq LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, q, likePattern(text), limit); err != nil {
		return nil, err
	}
	cities := make([]models.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, row.toModel())
	}
	return cities, nil
}

// CountCities returns the total count of cities
func (r *TerritoryRepository) CountCities(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cities`).Scan(&count)
	return count, err
}

// Ping checks database connectivity
func (r *TerritoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps text for a contains match, escaping LIKE wildcards.
func likePattern(text string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(text)) + "%"
}
