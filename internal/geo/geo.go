// Package geo converts simulator coordinates to and from simplefeatures
// geometries and samples orbit conics as line strings.
package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Plane coordinates are stored unprojected in the orbit plane. Geometry data
// is stored in the WKB format so SQLite can round-trip it without spatial
// extensions.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromXY creates a planar point.
func PointFromXY(x, y float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// XYFromPoint returns the point's coordinates, or zeros for an empty point.
func XYFromPoint(p geom.Point) (float64, float64) {
	c, ok := p.Coordinates()
	if !ok {
		return 0, 0
	}
	return c.XY.X, c.XY.Y
}

// XYFromString parses "x,y" into a planar point.
func XYFromString(coords string) (x, y float64, err error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	return x, y, nil
}

// PointFromString parses "x,y" into a geom.Point.
func PointFromString(coords string) (geom.Point, error) {
	x, y, err := XYFromString(coords)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	return PointFromXY(x, y), nil
}
