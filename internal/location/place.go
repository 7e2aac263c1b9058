package location

import "github.com/GTDGit/bizdir_api/internal/models"

// Place is a hierarchy node of any level, flattened for matching.
type Place struct {
	Type      models.LocationType `json:"type"`
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Slug      string              `json:"slug"`
	RegionID  string              `json:"regionId,omitempty"`
	CountryID string              `json:"countryId,omitempty"`
}

// Selection converts the place into the session-facing LocationSelection.
func (p Place) Selection() models.LocationSelection {
	sel := models.LocationSelection{
		Type: p.Type,
		ID:   p.ID,
		Slug: p.Slug,
		Name: p.Name,
	}
	if p.Type == models.LocationCity {
		sel.RegionID = p.RegionID
	}
	return sel
}

// Scope converts the place into a search scope descriptor.
func (p Place) Scope() *models.LocationScope {
	return &models.LocationScope{ID: p.ID, Name: p.Name, Type: p.Type}
}

// CountryPlace flattens a country.
func CountryPlace(c models.Country) Place {
	return Place{Type: models.LocationCountry, ID: c.ID, Name: c.Name, Slug: c.Slug, CountryID: c.ID}
}

// RegionPlace flattens a region.
func RegionPlace(r models.Region) Place {
	return Place{Type: models.LocationRegion, ID: r.ID, Name: r.Name, Slug: r.Slug, RegionID: r.ID, CountryID: r.CountryID}
}

// CityPlace flattens a city. CountryID is only known when the city carries
// its denormalized region.
func CityPlace(c models.City) Place {
	p := Place{Type: models.LocationCity, ID: c.ID, Name: c.Name, Slug: c.Slug, RegionID: c.RegionID}
	if c.Region != nil {
		p.CountryID = c.Region.CountryID
	}
	return p
}
