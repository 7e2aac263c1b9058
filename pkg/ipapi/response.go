package ipapi

// LookupResponse holds the fields of the IP lookup payload the resolver
// consumes. Error and Reason are set instead when the lookup fails.
type LookupResponse struct {
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}
