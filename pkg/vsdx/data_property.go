package vsdx

import (
	"fmt"

	"github.com/beevik/etree"
)

// DataProperty is a row of the shape data (Property) section
type DataProperty struct {
	Name    string
	Label   string
	Value   string
	Formula string
	Prompt  string
	Type    string
	Format  string
}

func dataPropertyFromRow(row *etree.Element) DataProperty {
	cells := cellMap(row)
	value := cells["Value"]
	return DataProperty{
		Name:    row.SelectAttrValue("N", ""),
		Label:   cells["Label"].Value,
		Value:   value.Value,
		Formula: value.Formula,
		Prompt:  cells["Prompt"].Value,
		Type:    cells["Type"].Value,
		Format:  cells["Format"].Value,
	}
}

func propertySection(el *etree.Element) *etree.Element {
	for _, section := range el.SelectElements("Section") {
		if section.SelectAttrValue("N", "") == "Property" {
			return section
		}
	}
	return nil
}

// DataProperties returns the shape data rows. Rows defined only on the
// master follow the local ones.
func (s *Shape) DataProperties() []DataProperty {
	return s.lookupDataProperties(s.inheritanceDepth())
}

func (s *Shape) lookupDataProperties(depth int) []DataProperty {
	var props []DataProperty
	local := make(map[string]bool)
	if section := propertySection(s.xml); section != nil {
		for _, row := range section.SelectElements("Row") {
			p := dataPropertyFromRow(row)
			local[p.Name] = true
			props = append(props, p)
		}
	}
	if depth <= 0 {
		return props
	}
	if master := s.MasterShape(); master != nil {
		for _, p := range master.lookupDataProperties(depth - 1) {
			if !local[p.Name] {
				props = append(props, p)
			}
		}
	}
	return props
}

// DataProperty returns the row with the given label, or with the given
// row name when no label matches
func (s *Shape) DataProperty(label string) (DataProperty, bool) {
	props := s.DataProperties()
	for _, p := range props {
		if p.Label == label {
			return p, true
		}
	}
	for _, p := range props {
		if p.Name == label {
			return p, true
		}
	}
	return DataProperty{}, false
}

// SetDataPropertyValue sets the value of the row with the given label or
// name. A row inherited from the master is copied onto the shape first.
func (s *Shape) SetDataPropertyValue(label, value string) error {
	prop, ok := s.DataProperty(label)
	if !ok {
		return fmt.Errorf("shape %s has no data property %q", s.ID(), label)
	}

	section := propertySection(s.xml)
	var row *etree.Element
	if section != nil {
		for _, r := range section.SelectElements("Row") {
			if r.SelectAttrValue("N", "") == prop.Name {
				row = r
				break
			}
		}
	}
	if row == nil {
		if section == nil {
			section = etree.NewElement("Section")
			section.Space = s.xml.Space
			section.CreateAttr("N", "Property")
			if text := s.textElement(); text != nil {
				s.xml.InsertChildAt(text.Index(), section)
			} else if shapes := s.shapesElement(false); shapes != nil {
				s.xml.InsertChildAt(shapes.Index(), section)
			} else {
				s.xml.AddChild(section)
			}
		}
		row = section.CreateElement("Row")
		row.Space = s.xml.Space
		row.CreateAttr("N", prop.Name)
		if prop.Label != "" {
			row.AddChild(newCellElement(s.xml.Space, "Label", prop.Label))
		}
	}

	cell := findCellElement(row, "Value")
	if cell == nil {
		cell = newCellElement(s.xml.Space, "Value", "")
		insertCell(row, cell)
	}
	cell.CreateAttr("V", value)
	cell.RemoveAttr("F")
	return nil
}
