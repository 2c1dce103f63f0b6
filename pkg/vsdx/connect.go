package vsdx

import (
	"github.com/beevik/etree"
)

// Connect records that one end of a connector is glued to a shape
type Connect struct {
	FromSheet string
	FromCell  string
	FromPart  string
	ToSheet   string
	ToCell    string
	ToPart    string
}

func connectFromElement(el *etree.Element) Connect {
	return Connect{
		FromSheet: el.SelectAttrValue("FromSheet", ""),
		FromCell:  el.SelectAttrValue("FromCell", ""),
		FromPart:  el.SelectAttrValue("FromPart", ""),
		ToSheet:   el.SelectAttrValue("ToSheet", ""),
		ToCell:    el.SelectAttrValue("ToCell", ""),
		ToPart:    el.SelectAttrValue("ToPart", ""),
	}
}

func (c Connect) element(space string) *etree.Element {
	el := etree.NewElement("Connect")
	el.Space = space
	attrs := [][2]string{
		{"FromSheet", c.FromSheet},
		{"FromCell", c.FromCell},
		{"FromPart", c.FromPart},
		{"ToSheet", c.ToSheet},
		{"ToCell", c.ToCell},
		{"ToPart", c.ToPart},
	}
	for _, a := range attrs {
		if a[1] != "" {
			el.CreateAttr(a[0], a[1])
		}
	}
	return el
}

// remap returns the connect with both ends translated through ids. ok is
// false unless both ends are mapped.
func (c Connect) remap(ids map[string]string) (Connect, bool) {
	from, okFrom := ids[c.FromSheet]
	to, okTo := ids[c.ToSheet]
	if !okFrom || !okTo {
		return c, false
	}
	c.FromSheet = from
	c.ToSheet = to
	return c, true
}

// parseConnects reads the <Connects> list of a page
func parseConnects(root *etree.Element) []Connect {
	if root == nil {
		return nil
	}
	list := root.SelectElement("Connects")
	if list == nil {
		return nil
	}
	var connects []Connect
	for _, el := range list.SelectElements("Connect") {
		connects = append(connects, connectFromElement(el))
	}
	return connects
}

// syncConnects rewrites the <Connects> list of root from connects. The
// list follows <Shapes>; an empty list is omitted.
func syncConnects(root *etree.Element, connects []Connect) {
	if root == nil {
		return
	}
	index := -1
	if old := root.SelectElement("Connects"); old != nil {
		index = old.Index()
		root.RemoveChildAt(index)
	}
	if len(connects) == 0 {
		return
	}

	list := etree.NewElement("Connects")
	list.Space = root.Space
	for _, c := range connects {
		list.AddChild(c.element(root.Space))
	}

	switch {
	case index >= 0:
		root.InsertChildAt(index, list)
	case root.SelectElement("Shapes") != nil:
		root.InsertChildAt(root.SelectElement("Shapes").Index()+1, list)
	default:
		root.AddChild(list)
	}
}
