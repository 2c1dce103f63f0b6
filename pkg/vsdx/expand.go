package vsdx

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-vsdx/pkg/vsdx/template"
)

var (
	forDirectiveRegex    = regexp.MustCompile(`\{%-?\s*for\s+(.+?)\s*-?%\}`)
	endForDirectiveRegex = regexp.MustCompile(`\{%-?\s*endfor\s*-?%\}`)
	showIfDirectiveRegex = regexp.MustCompile(`\{%-?\s*showif\s+(.+?)\s*-?%\}`)
)

// Expand renders the {{ }} and {% %} directives of every page against
// data. Shape-level directives repeat or hide whole shapes:
//
//	{% for item in items %}   repeats the shape, stacked downwards
//	{% endfor %}              on a later sibling, ends a multi-shape loop
//	{% showif cond %}         drops the shape unless cond holds
//
// A page whose name carries {% showif cond %} is removed when cond is
// false. Expansion is atomic: when any page fails, the document is left
// unchanged and a *MultiError of *DirectiveError is returned.
func (d *Document) Expand(data template.Data) error {
	if d.closed {
		return ErrClosed
	}

	errs := NewMultiError()
	results := make([]*pageExpansion, 0, len(d.pages))
	for _, p := range d.pages {
		res, err := d.expandPage(p, data)
		if err != nil {
			errs.Add(&DirectiveError{Page: p.Name(), Cause: err})
			continue
		}
		results = append(results, res)
	}
	if err := errs.Err(); err != nil {
		d.logger.Error("expansion failed on %d of %d pages", errs.Len(), len(d.pages))
		return err
	}

	removed := make(map[*Page]bool)
	for _, res := range results {
		if res.remove {
			removed[res.page] = true
		}
	}
	for i := len(d.pages) - 1; i >= 0; i-- {
		if !removed[d.pages[i]] {
			continue
		}
		if err := d.RemovePage(i); err != nil {
			return err
		}
	}

	// renamed after the removals so a hidden page never claims a name
	for _, res := range results {
		if res.remove {
			continue
		}
		p := res.page
		if res.xml != nil {
			p.xml = res.xml
			p.connects = res.connects
			p.maxID = res.maxID
		}
		if res.name != "" {
			p.rename(d.uniqueName(res.name, p))
		}
	}
	if len(d.pages) == 0 {
		d.logger.Warn("every page was hidden by its showif condition")
	}

	d.logger.Info("expanded %d pages, removed %d", len(results)-len(removed), len(removed))
	return nil
}

// pageExpansion is the rendered state of one page, applied only once
// every page rendered
type pageExpansion struct {
	page     *Page
	remove   bool
	name     string
	xml      *etree.Document
	connects []Connect
	maxID    int
}

func (d *Document) renderOptions(escape bool) *template.Options {
	opts := &template.Options{Strict: d.config.StrictMode}
	if escape {
		opts.Escape = template.EscapeXML
	}
	return opts
}

func (d *Document) expandPage(p *Page, data template.Data) (*pageExpansion, error) {
	res := &pageExpansion{page: p}

	name := p.Name()
	if m := showIfDirectiveRegex.FindStringSubmatch(name); m != nil {
		show, err := template.EvaluateCondition(m[1], data)
		if err != nil {
			return nil, fmt.Errorf("page name condition %q: %w", m[1], err)
		}
		if !show {
			res.remove = true
			return res, nil
		}
		name = strings.TrimSpace(strings.Replace(name, m[0], "", 1))
	}
	if template.HasDirectives(name) {
		rendered, err := template.Render(name, data, d.renderOptions(false))
		if err != nil {
			return nil, fmt.Errorf("page name: %w", err)
		}
		name = strings.TrimSpace(rendered)
	}
	if name != p.Name() && name != "" {
		res.name = name
	}

	work := p.xml.Copy()
	syncConnects(work.Root(), p.connects)

	r := &relocator{}
	r.relocate(work.Root())

	src, err := work.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize page: %w", err)
	}
	if !template.HasDirectives(src) {
		return res, nil
	}

	tmpl, err := template.DefaultCache().Compile(template.UnescapeDirectives(src))
	if err != nil {
		return nil, err
	}
	out, err := tmpl.Execute(data, d.renderOptions(true))
	if err != nil {
		return nil, err
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromString(out); err != nil {
		return nil, fmt.Errorf("rendered page is not well-formed: %w", err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("rendered page has no root element")
	}

	scratch := &Page{
		doc:      d,
		entry:    p.entry,
		part:     p.part,
		xml:      tree,
		rels:     p.rels,
		connects: parseConnects(tree.Root()),
		maxID:    p.maxID,
	}
	if id := maxShapeID(tree.Root()); id > scratch.maxID {
		scratch.maxID = id
	}

	// inner loops first, so an outer copy renumbers and moves an already
	// laid out subtree
	for group := r.loops - 1; group >= 0; group-- {
		scratch.repeatLoop(group)
	}
	stripLoopMarkers(tree.Root())
	scratch.pruneConnects()

	res.xml = tree
	res.connects = scratch.connects
	res.maxID = scratch.maxID
	return res, nil
}

// relocator turns shape-level directives into template tokens placed
// around the shape elements. Every loop is numbered and bracketed with
// marker comments, so the rendered runs and iterations can be found again.
type relocator struct {
	loops int
}

const (
	loopBeginMarker = "vsdx:loop-begin "
	loopIterMarker  = "vsdx:loop-iter "
	loopEndMarker   = "vsdx:loop-end "
)

func loopMarker(kind string, group int) *etree.Comment {
	return etree.NewComment(kind + strconv.Itoa(group))
}

type shapeDirectives struct {
	loop    string
	endLoop bool
	showIf  string
}

// extractDirectives strips the shape-level directives from the shape's own
// text and returns them
func extractDirectives(el *etree.Element) shapeDirectives {
	var d shapeDirectives
	text := el.SelectElement("Text")
	if text == nil {
		return d
	}

	var strip func(*etree.Element)
	strip = func(parent *etree.Element) {
		for _, tok := range parent.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				data := t.Data
				if d.loop == "" {
					if m := forDirectiveRegex.FindStringSubmatch(data); m != nil {
						d.loop = m[1]
						data = strings.Replace(data, m[0], "", 1)
					}
				}
				if endForDirectiveRegex.MatchString(data) {
					d.endLoop = true
					data = endForDirectiveRegex.ReplaceAllString(data, "")
				}
				if d.showIf == "" {
					if m := showIfDirectiveRegex.FindStringSubmatch(data); m != nil {
						d.showIf = m[1]
						data = strings.Replace(data, m[0], "", 1)
					}
				}
				t.Data = data
			case *etree.Element:
				strip(t)
			}
		}
	}
	strip(text)
	return d
}

func insertBefore(el *etree.Element, tokens ...etree.Token) {
	for _, token := range tokens {
		el.Parent().InsertChildAt(el.Index(), token)
	}
}

// relocate processes the sub-shapes of container and recurses into groups
func (r *relocator) relocate(container *etree.Element) {
	shapes := container.SelectElement("Shapes")
	if shapes == nil {
		return
	}
	siblings := shapes.SelectElements("Shape")
	dirs := make([]shapeDirectives, len(siblings))
	for i, el := range siblings {
		dirs[i] = extractDirectives(el)
	}

	// closes[i] counts the loops that end after sibling i
	closes := make([]int, len(siblings))
	var open []int
	for i, d := range dirs {
		switch {
		case d.loop != "" && d.endLoop:
			closes[i]++
		case d.loop != "":
			open = append(open, i)
		case d.endLoop:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			// an unmatched endfor stays in place and fails compilation
			closes[i]++
		}
	}
	// a loop with no closing sibling repeats only its own shape
	for _, i := range open {
		closes[i]++
	}

	var active []int
	for i, el := range siblings {
		d := dirs[i]
		if d.loop != "" {
			group := r.loops
			r.loops++
			active = append(active, group)
			insertBefore(el,
				loopMarker(loopBeginMarker, group),
				etree.NewText("{% for "+d.loop+" %}"),
				loopMarker(loopIterMarker, group))
		}
		if d.showIf != "" {
			insertBefore(el, etree.NewText("{% if "+d.showIf+" %}"))
		}

		r.relocate(el)

		var after []etree.Token
		if d.showIf != "" {
			after = append(after, etree.NewText("{% endif %}"))
		}
		for n := 0; n < closes[i]; n++ {
			after = append(after, etree.NewText("{% endfor %}"))
			if len(active) > 0 {
				after = append(after, loopMarker(loopEndMarker, active[len(active)-1]))
				active = active[:len(active)-1]
			}
		}
		index := el.Index() + 1
		for j, token := range after {
			shapes.InsertChildAt(index+j, token)
		}
	}
}

// repeatLoop lays out every rendered run of loop group. A run is split
// into iterations at the iteration markers; iterations after the first
// get fresh ids, retargeted formulas and in-loop connects, and move down
// by the summed height of the iterations before them.
func (p *Page) repeatLoop(group int) {
	begin := loopBeginMarker + strconv.Itoa(group)
	iter := loopIterMarker + strconv.Itoa(group)
	end := loopEndMarker + strconv.Itoa(group)

	for _, container := range p.xml.Root().FindElements(".//Shapes") {
		var iterations [][]*etree.Element
		inRun := false
		for _, tok := range container.Child {
			switch t := tok.(type) {
			case *etree.Comment:
				switch t.Data {
				case begin:
					inRun = true
					iterations = nil
				case iter:
					if inRun {
						iterations = append(iterations, nil)
					}
				case end:
					if inRun {
						p.layoutIterations(iterations)
					}
					inRun = false
				}
			case *etree.Element:
				if inRun && t.Tag == "Shape" && len(iterations) > 0 {
					last := len(iterations) - 1
					iterations[last] = append(iterations[last], t)
				}
			}
		}
	}
}

func (p *Page) layoutIterations(iterations [][]*etree.Element) {
	base := append([]Connect(nil), p.connects...)
	offset := 0.0
	for k, roots := range iterations {
		height := verticalExtent(roots, p)
		if k == 0 {
			offset = height
			continue
		}

		r := newIDRewriter(p)
		for _, el := range roots {
			r.assign(el)
		}
		for _, el := range roots {
			r.rewriteFormulas(el)
		}
		r.commit()

		for _, el := range roots {
			shapeForElement(el, p).Move(0, -offset)
		}
		for _, c := range base {
			if dup, ok := c.remap(r.ids); ok {
				p.connects = append(p.connects, dup)
			}
		}
		offset += height
	}
}

// verticalExtent is the distance from the highest to the lowest edge of
// the shapes, counting the end points of 1-D shapes
func verticalExtent(roots []*etree.Element, p *Page) float64 {
	if len(roots) == 0 {
		return 0
	}
	top, bottom := math.Inf(-1), math.Inf(1)
	for _, el := range roots {
		s := shapeForElement(el, p)
		y, half := s.Y(), s.Height()/2
		ys := []float64{y + half, y - half}
		if _, ok := s.Cell("BeginY"); ok {
			ys = append(ys, s.BeginY())
		}
		if _, ok := s.Cell("EndY"); ok {
			ys = append(ys, s.EndY())
		}
		for _, v := range ys {
			top = math.Max(top, v)
			bottom = math.Min(bottom, v)
		}
	}
	return top - bottom
}

// stripLoopMarkers removes the loop marker comments left by relocate
func stripLoopMarkers(root *etree.Element) {
	for _, container := range root.FindElements(".//Shapes") {
		for i := len(container.Child) - 1; i >= 0; i-- {
			c, ok := container.Child[i].(*etree.Comment)
			if ok && strings.HasPrefix(c.Data, "vsdx:loop-") {
				container.RemoveChildAt(i)
			}
		}
	}
}

// pruneConnects drops connects whose ends are no longer on the page
func (p *Page) pruneConnects() {
	present := make(map[string]bool)
	for _, el := range p.xml.Root().FindElements(".//Shape") {
		present[el.SelectAttrValue("ID", "")] = true
	}
	kept := p.connects[:0]
	for _, c := range p.connects {
		if present[c.FromSheet] && present[c.ToSheet] {
			kept = append(kept, c)
		}
	}
	p.connects = kept
}
