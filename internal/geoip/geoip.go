package geoip

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var (
	countryReader *geoip2.Reader
	once          sync.Once
	initErr       error
)

// Init loads the GeoLite2 country MMDB. A missing or empty path leaves the
// package disabled; lookups then return an error instead of data.
func Init(countryPath string) error {
	once.Do(func() {
		if countryPath == "" {
			initErr = fmt.Errorf("no country database configured")
			return
		}
		var err error
		countryReader, err = geoip2.Open(countryPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open country DB at %s: %w", countryPath, err)
		}
	})
	return initErr
}

// Country resolves a host (IP or domain) to an ISO country code.
func Country(host string) (string, error) {
	if countryReader == nil {
		return "", fmt.Errorf("geoip database not initialized")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return "", fmt.Errorf("dns lookup failed for %s", host)
		}
		ip = ips[0]
	}

	record, err := countryReader.Country(ip)
	if err != nil {
		return "", err
	}
	if record.Country.IsoCode == "" {
		return "", fmt.Errorf("no country for %s", host)
	}
	return record.Country.IsoCode, nil
}

func Close() {
	if countryReader != nil {
		_ = countryReader.Close()
	}
}
