package vsdx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ShapeKind is the closed set of shape variants
type ShapeKind int

const (
	KindShape ShapeKind = iota
	KindGroup
	KindConnector
)

func (k ShapeKind) String() string {
	switch k {
	case KindShape:
		return "shape"
	case KindGroup:
		return "group"
	case KindConnector:
		return "connector"
	default:
		return "unknown"
	}
}

// Shape is a view over a <Shape> element of a page or master. The page
// container (the page's top-level <Shapes> owner) is also a Shape: it
// reports KindGroup and an empty ID.
//
// Shapes are created on demand and hold no state of their own besides the
// master page id inherited from their parent at construction.
type Shape struct {
	xml          *etree.Element
	page         *Page
	parent       *Shape
	masterPageID string
	container    bool
}

func newShape(el *etree.Element, page *Page, parent *Shape) *Shape {
	s := &Shape{xml: el, page: page, parent: parent}
	s.masterPageID = el.SelectAttrValue("Master", "")
	if s.masterPageID == "" && parent != nil {
		s.masterPageID = parent.masterPageID
	}
	return s
}

// shapeForElement wraps an element found by a raw tree search, rebuilding
// the parent chain so master ids are inherited as during a walk.
func shapeForElement(el *etree.Element, page *Page) *Shape {
	var chain []*etree.Element
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur.Tag == "Shape" {
			chain = append(chain, cur)
		}
	}
	parent := page.Root()
	var s *Shape
	for i := len(chain) - 1; i >= 0; i-- {
		s = newShape(chain[i], page, parent)
		parent = s
	}
	return s
}

// ID returns the shape id, unique within its page
func (s *Shape) ID() string {
	if s.container {
		return ""
	}
	return s.xml.SelectAttrValue("ID", "")
}

// Name returns the NameU attribute, falling back to Name
func (s *Shape) Name() string {
	if name := s.xml.SelectAttrValue("NameU", ""); name != "" {
		return name
	}
	return s.xml.SelectAttrValue("Name", "")
}

// Type returns the raw Type attribute
func (s *Shape) Type() string {
	return s.xml.SelectAttrValue("Type", "")
}

// Kind classifies the shape. Groups are typed "Group"; connectors are
// 1-D shapes (BeginX and EndX cells) or routable (ObjType 2).
func (s *Shape) Kind() ShapeKind {
	if s.container || s.Type() == "Group" {
		return KindGroup
	}
	if objType, ok := s.Cell("ObjType"); ok && objType.Value == "2" {
		return KindConnector
	}
	_, hasBegin := s.Cell("BeginX")
	_, hasEnd := s.Cell("EndX")
	if hasBegin && hasEnd {
		return KindConnector
	}
	return KindShape
}

// MasterPageID returns the master id, inherited from the parent when the
// shape has none of its own
func (s *Shape) MasterPageID() string {
	return s.masterPageID
}

// MasterShapeID returns the id of the sub-shape of the master this shape
// instantiates, if any
func (s *Shape) MasterShapeID() string {
	return s.xml.SelectAttrValue("MasterShape", "")
}

// Page returns the page holding the shape
func (s *Shape) Page() *Page {
	return s.page
}

// Parent returns the containing shape. Top-level shapes return the page
// container; the container itself returns nil.
func (s *Shape) Parent() *Shape {
	return s.parent
}

// Element exposes the underlying XML element
func (s *Shape) Element() *etree.Element {
	return s.xml
}

func (s *Shape) String() string {
	if s.container {
		return "<Page container>"
	}
	return fmt.Sprintf("<Shape ID=%s Name=%q Kind=%s>", s.ID(), s.Name(), s.Kind())
}

// shapesElement returns the <Shapes> child holding sub-shapes, creating it
// when create is set
func (s *Shape) shapesElement(create bool) *etree.Element {
	shapes := s.xml.SelectElement("Shapes")
	if shapes == nil && create {
		shapes = s.xml.CreateElement("Shapes")
		shapes.Space = s.xml.Space
	}
	return shapes
}

// SubShapes returns the direct children, in document order
func (s *Shape) SubShapes() []*Shape {
	shapes := s.shapesElement(false)
	if shapes == nil {
		return nil
	}
	var subs []*Shape
	for _, el := range shapes.SelectElements("Shape") {
		subs = append(subs, newShape(el, s.page, s))
	}
	return subs
}

// walk visits every descendant in depth-first pre-order. Returning false
// from fn stops the walk.
func (s *Shape) walk(fn func(*Shape) bool) bool {
	for _, sub := range s.SubShapes() {
		if !fn(sub) {
			return false
		}
		if sub.shapesElement(false) != nil {
			if !sub.walk(fn) {
				return false
			}
		}
	}
	return true
}

func (s *Shape) findFirst(match func(*Shape) bool) *Shape {
	var found *Shape
	s.walk(func(sub *Shape) bool {
		if match(sub) {
			found = sub
			return false
		}
		return true
	})
	return found
}

func (s *Shape) findAll(match func(*Shape) bool) []*Shape {
	var found []*Shape
	s.walk(func(sub *Shape) bool {
		if match(sub) {
			found = append(found, sub)
		}
		return true
	})
	return found
}

// FindShapeByID returns the first descendant with the given id, or nil
func (s *Shape) FindShapeByID(id string) *Shape {
	return s.findFirst(func(sub *Shape) bool { return sub.ID() == id })
}

// FindShapesByID returns every descendant with the given id. Outside of
// directive expansion this holds at most one shape.
func (s *Shape) FindShapesByID(id string) []*Shape {
	return s.findAll(func(sub *Shape) bool { return sub.ID() == id })
}

// FindShapeByText returns the first descendant whose text contains text
func (s *Shape) FindShapeByText(text string) *Shape {
	return s.findFirst(func(sub *Shape) bool { return strings.Contains(sub.Text(), text) })
}

// FindShapesByText returns every descendant whose text contains text
func (s *Shape) FindShapesByText(text string) []*Shape {
	return s.findAll(func(sub *Shape) bool { return strings.Contains(sub.Text(), text) })
}

// FindShapeByPropertyLabel returns the first descendant carrying a data
// property with the given label
func (s *Shape) FindShapeByPropertyLabel(label string) *Shape {
	return s.findFirst(func(sub *Shape) bool { return sub.hasPropertyLabel(label) })
}

// FindShapesByPropertyLabel returns every descendant carrying a data
// property with the given label
func (s *Shape) FindShapesByPropertyLabel(label string) []*Shape {
	return s.findAll(func(sub *Shape) bool { return sub.hasPropertyLabel(label) })
}

func (s *Shape) hasPropertyLabel(label string) bool {
	_, ok := s.DataProperty(label)
	return ok
}

func (s *Shape) inheritanceDepth() int {
	if s.page != nil && s.page.doc != nil && s.page.doc.config != nil {
		return s.page.doc.config.MaxInheritanceDepth
	}
	return DefaultConfig().MaxInheritanceDepth
}

// Cell returns the named cell, falling through to the master shape when
// the shape has no local cell of that name
func (s *Shape) Cell(name string) (Cell, bool) {
	return s.lookupCell(name, s.inheritanceDepth())
}

func (s *Shape) lookupCell(name string, depth int) (Cell, bool) {
	if el := findCellElement(s.xml, name); el != nil {
		return cellFromElement(el), true
	}
	if depth <= 0 {
		return Cell{}, false
	}
	if master := s.MasterShape(); master != nil {
		return master.lookupCell(name, depth-1)
	}
	return Cell{}, false
}

// CellValue returns the value of the named cell, or "" when not found
func (s *Shape) CellValue(name string) string {
	cell, _ := s.Cell(name)
	return cell.Value
}

// CellFormula returns the formula of the named cell, or "" when not found
func (s *Shape) CellFormula(name string) string {
	cell, _ := s.Cell(name)
	return cell.Formula
}

// Cells returns the cells stored on the shape itself
func (s *Shape) Cells() map[string]Cell {
	return cellMap(s.xml)
}

// localCell returns the shape's own Cell element for name. A cell only
// present on the master is copied in first; masters are never written
// through an instance.
func (s *Shape) localCell(name string) *etree.Element {
	if el := findCellElement(s.xml, name); el != nil {
		return el
	}

	var el *etree.Element
	if master := s.MasterShape(); master != nil {
		if inherited, ok := master.lookupCell(name, s.inheritanceDepth()-1); ok {
			el = newCellElement(s.xml.Space, name, inherited.Value)
			if inherited.Unit != "" {
				el.CreateAttr("U", inherited.Unit)
			}
		}
	}
	if el == nil {
		el = newCellElement(s.xml.Space, name, "")
	}
	insertCell(s.xml, el)
	return el
}

// SetCellValue sets the value of the named cell
func (s *Shape) SetCellValue(name, value string) {
	s.localCell(name).CreateAttr("V", value)
}

// SetCellFormula sets the formula of the named cell. An empty formula
// removes it.
func (s *Shape) SetCellFormula(name, formula string) {
	el := s.localCell(name)
	if formula == "" {
		el.RemoveAttr("F")
		return
	}
	el.CreateAttr("F", formula)
}

func (s *Shape) floatCell(name string) float64 {
	cell, ok := s.Cell(name)
	if !ok {
		return 0
	}
	f, _ := cell.Float()
	return f
}

func (s *Shape) setFloatCell(name string, value float64) {
	s.SetCellValue(name, formatFloat(value))
}

// X returns PinX
func (s *Shape) X() float64 { return s.floatCell("PinX") }

// Y returns PinY
func (s *Shape) Y() float64 { return s.floatCell("PinY") }

func (s *Shape) Width() float64  { return s.floatCell("Width") }
func (s *Shape) Height() float64 { return s.floatCell("Height") }
func (s *Shape) BeginX() float64 { return s.floatCell("BeginX") }
func (s *Shape) BeginY() float64 { return s.floatCell("BeginY") }
func (s *Shape) EndX() float64   { return s.floatCell("EndX") }
func (s *Shape) EndY() float64   { return s.floatCell("EndY") }

func (s *Shape) SetX(v float64)      { s.setFloatCell("PinX", v) }
func (s *Shape) SetY(v float64)      { s.setFloatCell("PinY", v) }
func (s *Shape) SetWidth(v float64)  { s.setFloatCell("Width", v) }
func (s *Shape) SetHeight(v float64) { s.setFloatCell("Height", v) }
func (s *Shape) SetBeginX(v float64) { s.setFloatCell("BeginX", v) }
func (s *Shape) SetBeginY(v float64) { s.setFloatCell("BeginY", v) }
func (s *Shape) SetEndX(v float64)   { s.setFloatCell("EndX", v) }
func (s *Shape) SetEndY(v float64)   { s.setFloatCell("EndY", v) }

// Move translates the shape. Connector end points move with it.
func (s *Shape) Move(dx, dy float64) {
	s.SetX(s.X() + dx)
	s.SetY(s.Y() + dy)

	if _, ok := s.Cell("BeginX"); ok {
		s.SetBeginX(s.BeginX() + dx)
		s.SetBeginY(s.BeginY() + dy)
	}
	if _, ok := s.Cell("EndX"); ok {
		s.SetEndX(s.EndX() + dx)
		s.SetEndY(s.EndY() + dy)
	}
}

// MasterShape resolves the master shape this instance inherits from: the
// root shape of the master page, or its sub-shape named by MasterShape.
// Returns nil when the shape has no master or the master is missing.
func (s *Shape) MasterShape() *Shape {
	if s.container || s.masterPageID == "" || s.page == nil || s.page.doc == nil {
		return nil
	}
	master := s.page.doc.MasterByID(s.masterPageID)
	if master == nil {
		return nil
	}
	root := master.RootShape()
	if root == nil {
		return nil
	}
	if id := s.MasterShapeID(); id != "" && id != root.ID() {
		return root.FindShapeByID(id)
	}
	return root
}

func (s *Shape) textElement() *etree.Element {
	return s.xml.SelectElement("Text")
}

// Text returns the shape text, falling through to the master when the
// shape has no text element of its own
func (s *Shape) Text() string {
	return s.lookupText(s.inheritanceDepth())
}

func (s *Shape) lookupText(depth int) string {
	if el := s.textElement(); el != nil {
		return elementText(el)
	}
	if depth <= 0 {
		return ""
	}
	if master := s.MasterShape(); master != nil {
		return master.lookupText(depth - 1)
	}
	return ""
}

// elementText concatenates the character data of el, including text that
// follows formatting markers such as <cp/> and <pp/>
func elementText(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			b.WriteString(elementText(t))
		}
	}
	return b.String()
}

// localText returns the shape's own Text element, copying the master's
// text element in when the shape has none
func (s *Shape) localText() *etree.Element {
	if el := s.textElement(); el != nil {
		return el
	}

	var el *etree.Element
	if master := s.MasterShape(); master != nil {
		if inherited := master.textElement(); inherited != nil {
			el = inherited.Copy()
		}
	}
	if el == nil {
		el = etree.NewElement("Text")
		el.Space = s.xml.Space
	}

	// Text precedes the sub-shapes
	if shapes := s.shapesElement(false); shapes != nil {
		s.xml.InsertChildAt(shapes.Index(), el)
	} else {
		s.xml.AddChild(el)
	}
	return el
}

// SetText replaces the text of the shape. Leading formatting markers are
// kept.
func (s *Shape) SetText(text string) {
	el := s.localText()
	for _, tok := range append([]etree.Token(nil), el.Child...) {
		if _, ok := tok.(*etree.CharData); ok {
			el.RemoveChild(tok)
		}
	}
	el.AddChild(etree.NewText(text))
}

// FindReplace replaces old with new in the text of the shape and all its
// sub-shapes
func (s *Shape) FindReplace(old, new string) {
	if !s.container && strings.Contains(s.Text(), old) {
		replaceInElement(s.localText(), old, new)
	}
	for _, sub := range s.SubShapes() {
		sub.FindReplace(old, new)
	}
}

func replaceInElement(el *etree.Element, old, new string) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			t.Data = strings.ReplaceAll(t.Data, old, new)
		case *etree.Element:
			replaceInElement(t, old, new)
		}
	}
}

// Connects returns the page connects with this shape at either end
func (s *Shape) Connects() []Connect {
	if s.page == nil || s.container {
		return nil
	}
	id := s.ID()
	var out []Connect
	for _, c := range s.page.connects {
		if c.FromSheet == id || c.ToSheet == id {
			out = append(out, c)
		}
	}
	return out
}

// ConnectedShapes returns the shapes at the other end of this shape's
// connects, without duplicates
func (s *Shape) ConnectedShapes() []*Shape {
	id := s.ID()
	seen := make(map[string]bool)
	var out []*Shape
	for _, c := range s.Connects() {
		other := c.ToSheet
		if other == id {
			other = c.FromSheet
		}
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		if shape := s.page.FindShapeByID(other); shape != nil {
			out = append(out, shape)
		}
	}
	return out
}

// subtreeIDs collects the ids of the shape and all its descendants
func (s *Shape) subtreeIDs() map[string]bool {
	ids := make(map[string]bool)
	walkShapeElements(s.xml, func(el *etree.Element) {
		if id := el.SelectAttrValue("ID", ""); id != "" {
			ids[id] = true
		}
	})
	return ids
}

// Remove detaches the shape from its page and drops every connect that
// references it or one of its descendants
func (s *Shape) Remove() error {
	if s.container {
		return fmt.Errorf("cannot remove the page container")
	}
	parent := s.xml.Parent()
	if parent == nil {
		return fmt.Errorf("shape %s is already detached: %w", s.ID(), ErrShapeNotFound)
	}

	ids := s.subtreeIDs()
	parent.RemoveChild(s.xml)
	if s.page != nil {
		s.page.dropConnects(ids)
	}
	return nil
}

// walkShapeElements visits el and every nested <Shape> below it in
// depth-first pre-order
func walkShapeElements(el *etree.Element, fn func(*etree.Element)) {
	if el.Tag == "Shape" {
		fn(el)
	}
	shapes := el.SelectElement("Shapes")
	if shapes == nil {
		return
	}
	for _, child := range shapes.SelectElements("Shape") {
		walkShapeElements(child, fn)
	}
}

// owningShape returns the nearest <Shape> ancestor of el
func owningShape(el *etree.Element) *etree.Element {
	for cur := el.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Tag == "Shape" {
			return cur
		}
	}
	return nil
}
