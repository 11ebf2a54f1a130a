// Package geo resolves city names to coordinates.
package geo

import (
	"math"
	"strings"
	"sync"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Directory maps normalised city names to their centre.
type Directory struct {
	mu     sync.RWMutex
	cities map[string]Coord
}

func NewDirectory() *Directory {
	return &Directory{cities: make(map[string]Coord)}
}

// DefaultDirectory knows the cities the carpool network serves.
func DefaultDirectory() *Directory {
	d := NewDirectory()
	for name, c := range map[string]Coord{
		"Chennai":     {13.0827, 80.2707},
		"Bangalore":   {12.9716, 77.5946},
		"Bengaluru":   {12.9716, 77.5946},
		"Mumbai":      {19.0760, 72.8777},
		"Pune":        {18.5204, 73.8567},
		"Delhi":       {28.7041, 77.1025},
		"Jaipur":      {26.9124, 75.7873},
		"Hyderabad":   {17.3850, 78.4867},
		"Mysore":      {12.2958, 76.6394},
		"Coimbatore":  {11.0168, 76.9558},
		"Pondicherry": {11.9416, 79.8083},
		"Kochi":       {9.9312, 76.2673},
		"Goa":         {15.2993, 74.1240},
		"Ahmedabad":   {23.0225, 72.5714},
		"Kolkata":     {22.5726, 88.3639},
		"Chandigarh":  {30.7333, 76.7794},
		"Agra":        {27.1767, 78.0081},
	} {
		d.Upsert(name, c)
	}
	return d
}

func normalise(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (d *Directory) Upsert(name string, c Coord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cities[normalise(name)] = c
}

// Lookup is case-insensitive and ignores surrounding whitespace.
func (d *Directory) Lookup(name string) (Coord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cities[normalise(name)]
	return c, ok
}

// Distance between two known cities in meters.
func (d *Directory) Distance(from, to string) (float64, bool) {
	a, ok := d.Lookup(from)
	if !ok {
		return 0, false
	}
	b, ok := d.Lookup(to)
	if !ok {
		return 0, false
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon), true
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
