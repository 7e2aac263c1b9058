package service

import (
	"context"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
	"github.com/GTDGit/bizdir_api/pkg/ipapi"
)

// IPAPIGeocoder is the IP-based fallback provider. It ignores coordinates.
type IPAPIGeocoder struct {
	client *ipapi.Client
}

// NewIPAPIGeocoder wraps an ipapi client.
func NewIPAPIGeocoder(client *ipapi.Client) *IPAPIGeocoder {
	return &IPAPIGeocoder{client: client}
}

// Name returns the provider name.
func (g *IPAPIGeocoder) Name() string { return "ipapi" }

// Reverse looks up the requesting client's IP address.
func (g *IPAPIGeocoder) Reverse(ctx context.Context, req location.ReverseGeocodeRequest) (models.GeocodeCandidate, error) {
	resp, err := g.client.Lookup(ctx, req.ClientIP)
	if err != nil {
		return models.GeocodeCandidate{}, err
	}
	return models.GeocodeCandidate{
		CityName:    resp.City,
		RegionName:  resp.Region,
		CountryName: resp.CountryName,
	}, nil
}
