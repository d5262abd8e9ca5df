package observatory

import "github.com/star/airmass/internal/sky"

// Builtin returns the sites shipped with the tool.
func Builtin() []sky.Observatory {
	return []sky.Observatory{
		{Name: "EABA", Location: sky.GeodeticLocation{Longitude: -64.5467, Latitude: -31.5983, Height: 1350}},
		{Name: "Macon", Location: sky.GeodeticLocation{Longitude: -67.2995, Latitude: -24.5554, Height: 4600}},
		{Name: "Mamalluca", Location: sky.GeodeticLocation{Longitude: -70.6833, Latitude: -29.9833, Height: 1100}},
		{Name: "CTMO", Location: sky.GeodeticLocation{Longitude: -97.568956, Latitude: 25.995789, Height: 12}},
		{Name: "Guillermo Haro", Location: sky.GeodeticLocation{Longitude: -110.384722, Latitude: 31.052778, Height: 2480}},
	}
}

// NewBuiltinRegistry builds a registry holding Builtin plus any extra sites.
func NewBuiltinRegistry(extra ...sky.Observatory) (*Registry, error) {
	return NewRegistry(append(Builtin(), extra...)...)
}
