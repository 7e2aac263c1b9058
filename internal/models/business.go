package models

import "time"

// Business is a directory listing as returned by location-scoped search.
type Business struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	CategorySlug string    `json:"category" db:"category_slug"`
	CityID       string    `json:"cityId" db:"city_id"`
	RegionID     string    `json:"regionId" db:"region_id"`
	CountryID    string    `json:"countryId" db:"country_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// BusinessQuery holds the non-location filters of a business search.
type BusinessQuery struct {
	Text     string
	Category string
	Page     int
	Limit    int
}

// LocationFilter scopes a search to one hierarchy node.
type LocationFilter struct {
	ID   string       `json:"id"`
	Type LocationType `json:"type"`
}

// LocationScope describes a hierarchy node a search was requested for or
// actually executed against.
type LocationScope struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type LocationType `json:"type"`
}

// BusinessSearchResult is the widened search response.
type BusinessSearchResult struct {
	Results         []Business     `json:"results"`
	FallbackApplied bool           `json:"fallbackApplied"`
	Requested       *LocationScope `json:"requested,omitempty"`
	Applied         *LocationScope `json:"applied,omitempty"`
}
