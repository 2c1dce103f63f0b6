package vsdx

import (
	"fmt"
	"path"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
	"github.com/tiendc/go-deepcopy"
)

type positionKind int

const (
	positionIndex positionKind = iota
	positionFirst
	positionLast
	positionBefore
	positionAfter
)

// Position says where a new page goes in the page list
type Position struct {
	kind  positionKind
	index int
	name  string
}

// AtIndex places the page at index; len(pages) appends
func AtIndex(index int) Position {
	return Position{kind: positionIndex, index: index}
}

// First places the page ahead of all others
func First() Position {
	return Position{kind: positionFirst}
}

// Last appends the page
func Last() Position {
	return Position{kind: positionLast}
}

// Before places the page ahead of the named page
func Before(name string) Position {
	return Position{kind: positionBefore, name: name}
}

// After places the page behind the named page
func After(name string) Position {
	return Position{kind: positionAfter, name: name}
}

func (p Position) String() string {
	switch p.kind {
	case positionFirst:
		return "first"
	case positionLast:
		return "last"
	case positionBefore:
		return "before " + strconv.Quote(p.name)
	case positionAfter:
		return "after " + strconv.Quote(p.name)
	default:
		return "index " + strconv.Itoa(p.index)
	}
}

// resolve returns the insertion index in d.pages
func (p Position) resolve(d *Document) (int, error) {
	switch p.kind {
	case positionFirst:
		return 0, nil
	case positionLast:
		return len(d.pages), nil
	case positionBefore, positionAfter:
		target, err := d.PageByName(p.name)
		if err != nil {
			return 0, err
		}
		if p.kind == positionAfter {
			return target.Index() + 1, nil
		}
		return target.Index(), nil
	default:
		if p.index < 0 || p.index > len(d.pages) {
			return 0, fmt.Errorf("%w: index %d of %d", ErrInvalidPosition, p.index, len(d.pages))
		}
		return p.index, nil
	}
}

// uniqueName returns name, or name-1, name-2, ... when a page other than
// self already uses it
func (d *Document) uniqueName(name string, self *Page) string {
	taken := make(map[string]bool, len(d.pages))
	for _, p := range d.pages {
		if p != self {
			taken[p.Name()] = true
		}
	}
	if !taken[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := name + "-" + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}

var pagePartRegex = regexp.MustCompile(`page(\d+)\.xml$`)

// nextPagePart returns visio/pages/page<N>.xml with N above every page
// part in use
func (d *Document) nextPagePart() string {
	max := 0
	for _, p := range d.pages {
		if m := pagePartRegex.FindStringSubmatch(p.part); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return path.Join(path.Dir(pagesPart), "page"+strconv.Itoa(max+1)+".xml")
}

// nextPageID returns one above the highest page id in pages.xml
func (d *Document) nextPageID() string {
	max := -1
	for _, p := range d.pages {
		if id, err := strconv.Atoi(p.ID()); err == nil && id > max {
			max = id
		}
	}
	return strconv.Itoa(max + 1)
}

// snapshot deep-copies the package state for a transaction
func (d *Document) snapshot() (packageState, error) {
	var next packageState
	if err := deepcopy.Copy(&next, &d.state); err != nil {
		return packageState{}, fmt.Errorf("failed to copy package state: %w", err)
	}
	return next, nil
}

// pageTemplate is the content a new page starts from
type pageTemplate struct {
	xml       *etree.Document
	rels      *Relationships
	pageSheet *etree.Element
	connects  []Connect
	maxID     int
}

// AddPage inserts a blank page. The page sheet (size, scale) is taken
// from the first page. A name already in use gets a -1, -2, ... suffix.
func (d *Document) AddPage(name string, pos Position) (*Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if len(d.pages) == 0 {
		return nil, fmt.Errorf("%w: drawing has no page to take the page sheet from", ErrPageNotFound)
	}
	if name == "" {
		name = "Page-" + strconv.Itoa(len(d.pages)+1)
	}

	first := d.pages[0]
	root := first.xml.Root().Copy()
	for _, tok := range append([]etree.Token(nil), root.Child...) {
		root.RemoveChild(tok)
	}
	blank := etree.NewDocument()
	blank.CreateProcInst("xml", `version="1.0" encoding="utf-8" standalone="yes"`)
	blank.SetRoot(root)

	tmpl := pageTemplate{xml: blank, rels: newRelationships()}
	if sheet := first.entry.SelectElement("PageSheet"); sheet != nil {
		tmpl.pageSheet = sheet.Copy()
	}

	page, err := d.insertPage(name, pos, tmpl)
	if err != nil {
		return nil, WithContext(err, "add page", map[string]interface{}{"name": name, "position": pos.String()})
	}
	return page, nil
}

// CopyPage inserts a copy of src with all its shapes, connects and master
// relationships
func (d *Document) CopyPage(src *Page, name string, pos Position) (*Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if src == nil || src.doc != d {
		return nil, fmt.Errorf("%w: copy source is not a page of this drawing", ErrPageNotFound)
	}
	if name == "" {
		name = src.Name()
	}

	tmpl := pageTemplate{
		xml:      src.xml.Copy(),
		rels:     newRelationships(),
		connects: src.Connects(),
		maxID:    src.maxID,
	}
	for _, rel := range src.rels.Relationship {
		tmpl.rels.Relationship = append(tmpl.rels.Relationship, rel)
	}
	if sheet := src.entry.SelectElement("PageSheet"); sheet != nil {
		tmpl.pageSheet = sheet.Copy()
	}

	page, err := d.insertPage(name, pos, tmpl)
	if err != nil {
		return nil, WithContext(err, "copy page", map[string]interface{}{"source": src.Name(), "position": pos.String()})
	}
	return page, nil
}

// insertPage registers a new page part: relationship, content type,
// pages.xml entry and app.xml title. Nothing is changed unless every step
// can succeed.
func (d *Document) insertPage(name string, pos Position, tmpl pageTemplate) (*Page, error) {
	index, err := pos.resolve(d)
	if err != nil {
		return nil, err
	}
	name = d.uniqueName(name, nil)
	part := d.nextPagePart()

	next, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	relID := next.Rels.Add(relTypePage, path.Base(part))
	next.ContentTypes.SetOverride(part, contentTypePage)
	next.App.InsertPage(index, name)

	space := d.pagesXML.Root().Space
	entry := etree.NewElement("Page")
	entry.Space = space
	entry.CreateAttr("ID", d.nextPageID())
	entry.CreateAttr("NameU", name)
	entry.CreateAttr("Name", name)
	if tmpl.pageSheet != nil {
		entry.AddChild(tmpl.pageSheet)
	}
	rel := entry.CreateElement("Rel")
	rel.Space = space
	rel.CreateAttr("r:id", relID)
	if d.pagesXML.Root().SelectAttr("xmlns:r") == nil {
		d.pagesXML.Root().CreateAttr("xmlns:r", officeRelNamespace)
	}

	page := &Page{
		doc:      d,
		entry:    entry,
		relID:    relID,
		part:     part,
		xml:      tmpl.xml,
		rels:     tmpl.rels,
		connects: tmpl.connects,
		maxID:    tmpl.maxID,
	}

	// commit
	d.state = next
	if index < len(d.pages) {
		anchor := d.pages[index].entry
		d.pagesXML.Root().InsertChildAt(anchor.Index(), entry)
	} else if len(d.pages) > 0 {
		anchor := d.pages[len(d.pages)-1].entry
		d.pagesXML.Root().InsertChildAt(anchor.Index()+1, entry)
	} else {
		d.pagesXML.Root().AddChild(entry)
	}
	d.pages = append(d.pages, nil)
	copy(d.pages[index+1:], d.pages[index:])
	d.pages[index] = page
	d.unremove(part)
	d.unremove(relsPartFor(part))

	d.logger.Info("added page %q at %d as %s", name, index, part)
	return page, nil
}

// RemovePage deletes the page at index with its part, relationships,
// connects and app.xml title
func (d *Document) RemovePage(index int) error {
	if d.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(d.pages) {
		return fmt.Errorf("%w: index %d of %d", ErrInvalidPosition, index, len(d.pages))
	}
	page := d.pages[index]

	next, err := d.snapshot()
	if err != nil {
		return err
	}
	next.Rels.Remove(page.relID)
	next.ContentTypes.RemoveOverride(page.part)
	next.App.RemovePage(index)

	// commit
	d.state = next
	if parent := page.entry.Parent(); parent != nil {
		parent.RemoveChild(page.entry)
	}
	d.pages = append(d.pages[:index], d.pages[index+1:]...)
	d.removed = append(d.removed, page.part, relsPartFor(page.part))
	page.connects = nil
	page.doc = nil

	d.logger.Info("removed page %q (%s)", page.Name(), page.part)
	return nil
}

// unremove cancels a pending delete of a part that is in use again
func (d *Document) unremove(part string) {
	kept := d.removed[:0]
	for _, p := range d.removed {
		if p != part {
			kept = append(kept, p)
		}
	}
	d.removed = kept
}
