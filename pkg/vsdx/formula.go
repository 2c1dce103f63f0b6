package vsdx

import (
	"strings"

	"github.com/xuri/efp"
)

// FormulaReferences returns the shape ids a formula refers to through
// Sheet.<id>! references, in order of appearance. Text literals are not
// searched.
func FormulaReferences(formula string) []string {
	if !strings.Contains(formula, "Sheet.") {
		return nil
	}

	ps := efp.ExcelParser()
	tokens := ps.Parse(formula)

	var refs []string
	for _, token := range tokens {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		for _, m := range sheetRefRegex.FindAllStringSubmatch(token.TValue, -1) {
			refs = append(refs, m[1])
		}
	}
	return refs
}

// ValidateReferences reports formulas that reference a shape missing from
// their page. Dangling references are legal in a document; Save only
// checks them when StrictReferences is set.
func (d *Document) ValidateReferences() error {
	if d.closed {
		return ErrClosed
	}

	var issues []ValidationIssue
	for _, page := range d.pages {
		issues = append(issues, page.danglingReferences()...)
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func (p *Page) danglingReferences() []ValidationIssue {
	shapes := p.AllShapes()
	ids := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		ids[s.ID()] = true
	}

	var issues []ValidationIssue
	for _, s := range shapes {
		for _, cell := range s.xml.FindElements(".//Cell") {
			// nested shapes are checked on their own
			if owner := owningShape(cell); owner != s.xml {
				continue
			}
			formula := cell.SelectAttrValue("F", "")
			for _, ref := range FormulaReferences(formula) {
				if ids[ref] {
					continue
				}
				issues = append(issues, ValidationIssue{
					Page:    p.Name(),
					ShapeID: s.ID(),
					Cell:    cell.SelectAttrValue("N", ""),
					Message: "formula " + formula + " references missing shape " + ref,
				})
			}
		}
	}
	return issues
}
