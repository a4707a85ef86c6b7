package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"
)

// LineStringFromPath converts sampled [x, y] pairs to a geom.LineString.
// Fewer than two points give an empty line string.
func LineStringFromPath(path [][2]float64) geom.LineString {
	if len(path) < 2 {
		return geom.LineString{}
	}
	flatCoords := make([]float64, 0, len(path)*2)
	for _, pt := range path {
		flatCoords = append(flatCoords, pt[0], pt[1])
	}
	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq)
}

// PathFromLineString returns the vertices of ls as [x, y] pairs.
func PathFromLineString(ls geom.LineString) [][2]float64 {
	if ls.IsEmpty() {
		return nil
	}
	seq := ls.Coordinates()
	path := make([][2]float64, seq.Length())
	for i := range path {
		xy := seq.GetXY(i)
		path[i] = [2]float64{xy.X, xy.Y}
	}
	return path
}
