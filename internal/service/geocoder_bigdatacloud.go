package service

import (
	"context"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
	"github.com/GTDGit/bizdir_api/pkg/bigdatacloud"
)

// BigDataCloudGeocoder is the primary, coordinate-based provider.
type BigDataCloudGeocoder struct {
	client *bigdatacloud.Client
}

// NewBigDataCloudGeocoder wraps a BigDataCloud client.
func NewBigDataCloudGeocoder(client *bigdatacloud.Client) *BigDataCloudGeocoder {
	return &BigDataCloudGeocoder{client: client}
}

// Name returns the provider name.
func (g *BigDataCloudGeocoder) Name() string { return "bigdatacloud" }

// Reverse prefers the city field and falls back to locality.
func (g *BigDataCloudGeocoder) Reverse(ctx context.Context, req location.ReverseGeocodeRequest) (models.GeocodeCandidate, error) {
	resp, err := g.client.ReverseGeocode(ctx, req.Coordinates.Latitude, req.Coordinates.Longitude)
	if err != nil {
		return models.GeocodeCandidate{}, err
	}
	city := resp.City
	if city == "" {
		city = resp.Locality
	}
	return models.GeocodeCandidate{
		CityName:    city,
		RegionName:  resp.PrincipalSubdivision,
		CountryName: resp.CountryName,
	}, nil
}
