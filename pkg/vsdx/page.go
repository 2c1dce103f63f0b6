package vsdx

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"
)

// Page is a drawing page: its entry in pages.xml, its content part and the
// relationships of that part
type Page struct {
	doc      *Document
	entry    *etree.Element
	relID    string
	part     string
	xml      *etree.Document
	rels     *Relationships
	connects []Connect
	maxID    int
}

func newPage(doc *Document, entry *etree.Element, relID, part string, content []byte, rels *Relationships) (*Page, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", part, err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("%s has no root element", part)
	}
	if rels == nil {
		rels = newRelationships()
	}
	return &Page{
		doc:      doc,
		entry:    entry,
		relID:    relID,
		part:     part,
		xml:      tree,
		rels:     rels,
		connects: parseConnects(tree.Root()),
		maxID:    maxShapeID(tree.Root()),
	}, nil
}

// maxShapeID returns the highest numeric shape id below root
func maxShapeID(root *etree.Element) int {
	max := 0
	if root == nil {
		return max
	}
	for _, el := range root.FindElements(".//Shape") {
		if id, err := strconv.Atoi(el.SelectAttrValue("ID", "")); err == nil && id > max {
			max = id
		}
	}
	return max
}

// ID returns the page id from pages.xml
func (p *Page) ID() string {
	return p.entry.SelectAttrValue("ID", "")
}

// Name returns the display name of the page
func (p *Page) Name() string {
	if name := p.entry.SelectAttrValue("Name", ""); name != "" {
		return name
	}
	return p.entry.SelectAttrValue("NameU", "")
}

// SetName renames the page. Names are unique within a document.
func (p *Page) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("page name must not be empty")
	}
	if p.doc != nil {
		for _, other := range p.doc.pages {
			if other != p && other.Name() == name {
				return fmt.Errorf("page name %q already in use", name)
			}
		}
	}
	p.rename(name)
	return nil
}

// rename sets Name, NameU when it tracked the old name, and the app title
func (p *Page) rename(name string) {
	old := p.Name()
	p.entry.CreateAttr("Name", name)
	if p.entry.SelectAttrValue("NameU", "") == old {
		p.entry.CreateAttr("NameU", name)
	}
	if p.doc != nil {
		if index := p.Index(); index >= 0 {
			p.doc.state.App.RenamePage(index, name)
		}
	}
}

// Index returns the position of the page in the document, or -1 once the
// page is removed
func (p *Page) Index() int {
	if p.doc == nil {
		return -1
	}
	for i, other := range p.doc.pages {
		if other == p {
			return i
		}
	}
	return -1
}

// Part returns the package part name of the page content
func (p *Page) Part() string {
	return p.part
}

// Document returns the owning document
func (p *Page) Document() *Document {
	return p.doc
}

// Width returns the PageWidth cell of the page sheet
func (p *Page) Width() float64 {
	return p.sheetFloat("PageWidth")
}

// Height returns the PageHeight cell of the page sheet
func (p *Page) Height() float64 {
	return p.sheetFloat("PageHeight")
}

func (p *Page) sheetFloat(name string) float64 {
	el := findCellElement(p.entry.SelectElement("PageSheet"), name)
	if el == nil {
		return 0
	}
	f, _ := cellFromElement(el).Float()
	return f
}

// MaxID returns the id watermark: no shape on the page was ever given a
// higher id
func (p *Page) MaxID() int {
	return p.maxID
}

// Root returns the page container, the group of all top-level shapes
func (p *Page) Root() *Shape {
	return &Shape{xml: p.xml.Root(), page: p, container: true}
}

// ChildShapes returns the top-level shapes
func (p *Page) ChildShapes() []*Shape {
	return p.Root().SubShapes()
}

// AllShapes returns every shape on the page in depth-first pre-order
func (p *Page) AllShapes() []*Shape {
	return p.Root().findAll(func(*Shape) bool { return true })
}

func (p *Page) FindShapeByID(id string) *Shape {
	return p.Root().FindShapeByID(id)
}

func (p *Page) FindShapesByID(id string) []*Shape {
	return p.Root().FindShapesByID(id)
}

func (p *Page) FindShapeByText(text string) *Shape {
	return p.Root().FindShapeByText(text)
}

func (p *Page) FindShapesByText(text string) []*Shape {
	return p.Root().FindShapesByText(text)
}

func (p *Page) FindShapeByPropertyLabel(label string) *Shape {
	return p.Root().FindShapeByPropertyLabel(label)
}

func (p *Page) FindShapesByPropertyLabel(label string) []*Shape {
	return p.Root().FindShapesByPropertyLabel(label)
}

// FindReplace replaces text in every shape of the page
func (p *Page) FindReplace(old, new string) {
	p.Root().FindReplace(old, new)
}

// Connects returns a copy of the page connect list
func (p *Page) Connects() []Connect {
	return append([]Connect(nil), p.connects...)
}

// AddConnect glues an end of connector to shape
func (p *Page) AddConnect(connector, shape *Shape, fromCell, toCell string) error {
	if connector.page != p || shape.page != p {
		return fmt.Errorf("connect ends must be shapes of page %q", p.Name())
	}
	p.connects = append(p.connects, Connect{
		FromSheet: connector.ID(),
		FromCell:  fromCell,
		ToSheet:   shape.ID(),
		ToCell:    toCell,
	})
	return nil
}

// dropConnects removes every connect with an end in ids
func (p *Page) dropConnects(ids map[string]bool) {
	kept := p.connects[:0]
	for _, c := range p.connects {
		if ids[c.FromSheet] || ids[c.ToSheet] {
			continue
		}
		kept = append(kept, c)
	}
	p.connects = kept
}

// CopyShape deep-copies src as the last child of parent, or of the page
// container when parent is nil. Every shape of the copy gets a fresh id,
// formulas inside the copy follow the new ids and connects between copied
// shapes are duplicated.
func (p *Page) CopyShape(src, parent *Shape) (*Shape, error) {
	if src == nil || src.container {
		return nil, fmt.Errorf("copy source must be a shape")
	}
	if parent == nil {
		parent = p.Root()
	}
	if parent.page != p {
		return nil, fmt.Errorf("copy target is not on page %q", p.Name())
	}

	el := src.xml.Copy()
	if el.SelectAttrValue("Master", "") == "" && src.masterPageID != "" && src.masterPageID != parent.masterPageID {
		el.CreateAttr("Master", src.masterPageID)
	}
	parent.shapesElement(true).AddChild(el)

	r := newIDRewriter(p)
	r.assign(el)
	r.rewriteFormulas(el)
	r.commit()

	if src.page != nil {
		for _, c := range src.page.connects {
			if dup, ok := c.remap(r.ids); ok {
				p.connects = append(p.connects, dup)
			}
		}
	}
	p.linkMasters(el)

	copied := newShape(el, p, parent)
	p.logger().Debug("copied shape %s to %s", src.ID(), copied.ID())
	return copied, nil
}

// linkMasters adds master relationships for every master used below el
func (p *Page) linkMasters(el *etree.Element) {
	if p.doc == nil {
		return
	}
	walkShapeElements(el, func(shape *etree.Element) {
		id := shape.SelectAttrValue("Master", "")
		if id == "" {
			return
		}
		master := p.doc.MasterByID(id)
		if master == nil {
			return
		}
		for _, rel := range p.rels.Relationship {
			if rel.Type == relTypeMaster && resolveTarget(p.part, rel.Target) == master.part {
				return
			}
		}
		p.rels.Add(relTypeMaster, relativeTarget(p.part, master.part))
	})
}

// relativeTarget returns the relationship target of part as seen from
// source, e.g. ../masters/master1.xml
func relativeTarget(source, part string) string {
	rel, err := filepath.Rel(filepath.FromSlash(pathDir(source)), filepath.FromSlash(part))
	if err != nil {
		return "/" + part
	}
	return filepath.ToSlash(rel)
}

func pathDir(part string) string {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(part)))
	if dir == "." {
		return ""
	}
	return dir
}

func (p *Page) logger() *Logger {
	if p.doc != nil && p.doc.logger != nil {
		return p.doc.logger
	}
	return GetLogger()
}

func (p *Page) marshal() ([]byte, error) {
	syncConnects(p.xml.Root(), p.connects)
	out, err := p.xml.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", p.part, err)
	}
	return out, nil
}

func (p *Page) String() string {
	return fmt.Sprintf("<Page Name=%q>", p.Name())
}
