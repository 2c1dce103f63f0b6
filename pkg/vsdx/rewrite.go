package vsdx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// sheetRefRegex matches a formula reference to another shape's cell
var sheetRefRegex = regexp.MustCompile(`Sheet\.(\d+)!`)

// idRewriter gives fresh ids to copied shapes and retargets the formulas
// inside the copy. Ids are drawn above the page watermark, so an id is
// never handed out twice on the same page.
type idRewriter struct {
	page *Page
	next int
	ids  map[string]string
}

func newIDRewriter(page *Page) *idRewriter {
	return &idRewriter{
		page: page,
		next: page.maxID,
		ids:  make(map[string]string),
	}
}

// assign renumbers el and every nested shape in depth-first pre-order
func (r *idRewriter) assign(el *etree.Element) {
	walkShapeElements(el, func(shape *etree.Element) {
		r.next++
		id := strconv.Itoa(r.next)
		if old := shape.SelectAttrValue("ID", ""); old != "" {
			r.ids[old] = id
		}
		shape.CreateAttr("ID", id)
	})
}

// rewriteFormulas retargets Sheet.<id>! references below el. References to
// shapes outside the renumbered set are left alone.
func (r *idRewriter) rewriteFormulas(el *etree.Element) {
	for _, cell := range el.FindElements(".//Cell") {
		attr := cell.SelectAttr("F")
		if attr == nil || attr.Value == "" {
			continue
		}
		attr.Value = rewriteFormula(attr.Value, r.ids)
	}
}

// commit raises the page watermark past the ids handed out
func (r *idRewriter) commit() {
	if r.next > r.page.maxID {
		r.page.maxID = r.next
	}
}

// rewriteFormula retargets references outside "quoted" text literals. A
// doubled quote inside a literal splits it into two segments with an empty
// one between, so even segments are always formula text.
func rewriteFormula(formula string, ids map[string]string) string {
	segments := strings.Split(formula, `"`)
	for i := 0; i < len(segments); i += 2 {
		segments[i] = sheetRefRegex.ReplaceAllStringFunc(segments[i], func(ref string) string {
			old := sheetRefRegex.FindStringSubmatch(ref)[1]
			if id, ok := ids[old]; ok {
				return "Sheet." + id + "!"
			}
			return ref
		})
	}
	return strings.Join(segments, `"`)
}
