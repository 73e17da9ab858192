package stats

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// CountryResolver maps a remote address to an ISO country code.
type CountryResolver interface {
	Country(ip net.IP) (string, error)
}

// GeoIPResolver resolves countries from a MaxMind database file.
type GeoIPResolver struct {
	db *geoip2.Reader
}

// NewGeoIPResolver opens the database at path.
func NewGeoIPResolver(path string) (*GeoIPResolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &GeoIPResolver{db: db}, nil
}

// Country returns the ISO code, or empty when the address is unknown.
func (r *GeoIPResolver) Country(ip net.IP) (string, error) {
	record, err := r.db.Country(ip)
	if err != nil {
		return "", err
	}
	return record.Country.IsoCode, nil
}

// Close releases the database handle.
func (r *GeoIPResolver) Close() error {
	return r.db.Close()
}
