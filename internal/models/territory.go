package models

// LocationType identifies a level of the administrative hierarchy.
type LocationType string

const (
	LocationCity    LocationType = "city"
	LocationRegion  LocationType = "region"
	LocationCountry LocationType = "country"
)

// Valid reports whether t is one of the three hierarchy levels.
func (t LocationType) Valid() bool {
	switch t {
	case LocationCity, LocationRegion, LocationCountry:
		return true
	}
	return false
}

// Broader returns the next level up, or false when t is already the broadest.
func (t LocationType) Broader() (LocationType, bool) {
	switch t {
	case LocationCity:
		return LocationRegion, true
	case LocationRegion:
		return LocationCountry, true
	}
	return "", false
}

// Country is the top of the hierarchy.
type Country struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Region represents a region/province inside a country.
type Region struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Slug      string `json:"slug" db:"slug"`
	CountryID string `json:"countryId" db:"country_id"`
}

// City represents a city. Region is the denormalized owning region, if loaded.
type City struct {
	ID       string     `json:"id" db:"id"`
	Name     string     `json:"name" db:"name"`
	Slug     string     `json:"slug" db:"slug"`
	RegionID string     `json:"regionId" db:"region_id"`
	Region   *RegionRef `json:"region,omitempty" db:"-"`
}

// RegionRef is a Region embedded in a City, carrying its Country.
type RegionRef struct {
	Region
	Country *Country `json:"country,omitempty"`
}

// LocationSelection is the single active location of a session.
// RegionID is only set for city selections.
type LocationSelection struct {
	Type     LocationType `json:"type"`
	ID       string       `json:"id"`
	Slug     string       `json:"slug"`
	Name     string       `json:"name"`
	RegionID string       `json:"regionId,omitempty"`
}

// GeocodeCandidate holds the place names extracted from a reverse-geocode
// response. It is never persisted.
type GeocodeCandidate struct {
	CityName    string `json:"cityName,omitempty"`
	RegionName  string `json:"regionName,omitempty"`
	CountryName string `json:"countryName,omitempty"`
}

// Empty reports whether no name was extracted at all.
func (g GeocodeCandidate) Empty() bool {
	return g.CityName == "" && g.RegionName == "" && g.CountryName == ""
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CountryResponse represents the API response for a country
type CountryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RegionResponse represents the API response for a region
type RegionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CountryID string `json:"countryId"`
}

// CityResponse represents the API response for a city
type CityResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	RegionID string `json:"regionId"`
}
