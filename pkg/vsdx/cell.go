package vsdx

import (
	"strconv"

	"github.com/beevik/etree"
)

// Cell is a named property of a shape, row or page sheet. Formula, when
// set, may reference other shapes as Sheet.<id>!<cell>.
type Cell struct {
	Name    string
	Value   string
	Formula string
	Unit    string
}

// Float parses the value as a number
func (c Cell) Float() (float64, bool) {
	f, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func cellFromElement(el *etree.Element) Cell {
	return Cell{
		Name:    el.SelectAttrValue("N", ""),
		Value:   el.SelectAttrValue("V", ""),
		Formula: el.SelectAttrValue("F", ""),
		Unit:    el.SelectAttrValue("U", ""),
	}
}

// findCellElement returns the direct Cell child of el named name
func findCellElement(el *etree.Element, name string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.SelectElements("Cell") {
		if c.SelectAttrValue("N", "") == name {
			return c
		}
	}
	return nil
}

// cellMap collects the direct Cell children of el
func cellMap(el *etree.Element) map[string]Cell {
	cells := make(map[string]Cell)
	if el == nil {
		return cells
	}
	for _, c := range el.SelectElements("Cell") {
		cell := cellFromElement(c)
		cells[cell.Name] = cell
	}
	return cells
}

// newCellElement builds a detached <Cell N=.. V=..> element
func newCellElement(space, name, value string) *etree.Element {
	el := etree.NewElement("Cell")
	el.Space = space
	el.CreateAttr("N", name)
	el.CreateAttr("V", value)
	return el
}

// insertCell places a Cell element after the existing cells of parent, so
// cells stay ahead of sections, text and sub-shapes.
func insertCell(parent, cell *etree.Element) {
	index := len(parent.Child)
	for i, tok := range parent.Child {
		if child, ok := tok.(*etree.Element); ok && child.Tag != "Cell" {
			index = i
			break
		}
	}
	parent.InsertChildAt(index, cell)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
