package service

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// cityLookup is the subset of *geoip2.Reader used here.
type cityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// MaxMindGeocoder is an offline IP-based provider backed by a local
// GeoLite2/GeoIP2 City database.
type MaxMindGeocoder struct {
	db       cityLookup
	closer   func() error
	language string
}

// OpenMaxMindGeocoder opens the database at path.
func OpenMaxMindGeocoder(path string) (*MaxMindGeocoder, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMindGeocoder{db: db, closer: db.Close, language: "en"}, nil
}

// Name returns the provider name.
func (g *MaxMindGeocoder) Name() string { return "maxmind" }

// Close releases the database.
func (g *MaxMindGeocoder) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// Reverse looks up the requesting client's IP address in the local database.
func (g *MaxMindGeocoder) Reverse(_ context.Context, req location.ReverseGeocodeRequest) (models.GeocodeCandidate, error) {
	ip := net.ParseIP(req.ClientIP)
	if ip == nil {
		return models.GeocodeCandidate{}, fmt.Errorf("maxmind: invalid client ip %q", req.ClientIP)
	}
	rec, err := g.db.City(ip)
	if err != nil {
		return models.GeocodeCandidate{}, fmt.Errorf("maxmind lookup: %w", err)
	}
	candidate := models.GeocodeCandidate{
		CityName:    rec.City.Names[g.language],
		CountryName: rec.Country.Names[g.language],
	}
	if len(rec.Subdivisions) > 0 {
		candidate.RegionName = rec.Subdivisions[0].Names[g.language]
	}
	return candidate, nil
}
