package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as "lat,lon" for external API compatibility.
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// ParseCoordinates reads a "lat,lon" pair.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: expected \"lat,lon\"", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: longitude: %w", s, err)
	}

	if lat < -90 || lat > 90 {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: latitude out of range", s)
	}
	if lon < -180 || lon > 180 {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: longitude out of range", s)
	}

	return Coordinates{Lat: lat, Lon: lon}, nil
}
