package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/smartcity/traffic/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseCoordinate reads "lon,lat"
func parseCoordinate(s string) (domain.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: coordinate %q must be lon,lat", domain.ErrInvalidInput, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: longitude %q: %v", domain.ErrInvalidInput, parts[0], err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: latitude %q: %v", domain.ErrInvalidInput, parts[1], err)
	}
	return domain.Coordinate{Lon: lon, Lat: lat}, nil
}
