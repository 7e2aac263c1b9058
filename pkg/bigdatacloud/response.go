package bigdatacloud

import "fmt"

// ReverseGeocodeResponse holds the fields of the reverse-geocode payload the
// resolver consumes.
type ReverseGeocodeResponse struct {
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	City                 string  `json:"city"`
	Locality             string  `json:"locality"`
	PrincipalSubdivision string  `json:"principalSubdivision"`
	CountryName          string  `json:"countryName"`
	CountryCode          string  `json:"countryCode"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bigdatacloud: unexpected status %d", e.StatusCode)
}
