package vsdx

import (
	"sort"
	"strconv"

	"github.com/beevik/etree"
)

// GeometryRow is one drawing instruction of a geometry section, such as
// MoveTo or LineTo
type GeometryRow struct {
	Type  string
	Index int
	Cells map[string]Cell
}

// Geometry is a Geometry section of a shape
type Geometry struct {
	Index int
	Cells map[string]Cell
	Rows  []GeometryRow
}

func geometryFromElement(el *etree.Element) Geometry {
	g := Geometry{
		Index: atoiDefault(el.SelectAttrValue("IX", ""), 0),
		Cells: cellMap(el),
	}
	for i, row := range el.SelectElements("Row") {
		g.Rows = append(g.Rows, GeometryRow{
			Type:  row.SelectAttrValue("T", ""),
			Index: atoiDefault(row.SelectAttrValue("IX", ""), i),
			Cells: cellMap(row),
		})
	}
	return g
}

// Geometries returns the geometry sections of the shape ordered by index.
// Sections the shape does not override come from its master.
func (s *Shape) Geometries() []Geometry {
	return s.lookupGeometries(s.inheritanceDepth())
}

func (s *Shape) lookupGeometries(depth int) []Geometry {
	byIndex := make(map[int]Geometry)
	if depth > 0 {
		if master := s.MasterShape(); master != nil {
			for _, g := range master.lookupGeometries(depth - 1) {
				byIndex[g.Index] = g
			}
		}
	}
	for _, section := range s.xml.SelectElements("Section") {
		if section.SelectAttrValue("N", "") != "Geometry" {
			continue
		}
		g := geometryFromElement(section)
		byIndex[g.Index] = g
	}

	geometries := make([]Geometry, 0, len(byIndex))
	for _, g := range byIndex {
		geometries = append(geometries, g)
	}
	sort.Slice(geometries, func(i, j int) bool { return geometries[i].Index < geometries[j].Index })
	return geometries
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
