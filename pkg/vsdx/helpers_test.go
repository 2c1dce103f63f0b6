package vsdx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

const visioNamespace = "http://schemas.microsoft.com/office/visio/2012/main"

type testPage struct {
	name     string
	shapes   string
	connects string
}

type testMaster struct {
	id     string
	nameU  string
	shapes string
}

type testDrawing struct {
	pages   []testPage
	masters []testMaster
	noApp   bool
	// appTitles overrides the page titles written to app.xml
	appTitles []string
}

// build packs the drawing into .vsdx bytes
func (td testDrawing) build(t *testing.T) []byte {
	t.Helper()

	parts := map[string]string{}

	var ct strings.Builder
	ct.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.WriteString(`<Override PartName="/visio/document.xml" ContentType="application/vnd.ms-visio.drawing.main+xml"/>`)
	ct.WriteString(`<Override PartName="/visio/pages/pages.xml" ContentType="application/vnd.ms-visio.pages+xml"/>`)

	var pages, pagesRels strings.Builder
	pages.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	pages.WriteString(`<Pages xmlns="` + visioNamespace + `" xmlns:r="` + officeRelNamespace + `">`)
	pagesRels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	pagesRels.WriteString(`<Relationships xmlns="` + relationshipsNamespace + `">`)

	var masterRels strings.Builder
	for i := range td.masters {
		fmt.Fprintf(&masterRels, `<Relationship Id="rId%d" Type="%s" Target="../masters/master%d.xml"/>`, i+1, relTypeMaster, i+1)
	}

	for i, p := range td.pages {
		n := i + 1
		fmt.Fprintf(&pages, `<Page ID="%d" NameU="%s" Name="%s"><PageSheet><Cell N="PageWidth" V="8.5"/><Cell N="PageHeight" V="11"/></PageSheet><Rel r:id="rId%d"/></Page>`, i, p.name, p.name, n)
		fmt.Fprintf(&pagesRels, `<Relationship Id="rId%d" Type="%s" Target="page%d.xml"/>`, n, relTypePage, n)
		fmt.Fprintf(&ct, `<Override PartName="/visio/pages/page%d.xml" ContentType="%s"/>`, n, contentTypePage)

		parts[fmt.Sprintf("visio/pages/page%d.xml", n)] = contentsXML("PageContents", p.shapes, p.connects)
		if len(td.masters) > 0 {
			parts[fmt.Sprintf("visio/pages/_rels/page%d.xml.rels", n)] = relsXML(masterRels.String())
		}
	}
	pages.WriteString(`</Pages>`)
	pagesRels.WriteString(`</Relationships>`)
	parts[pagesPart] = pages.String()
	parts[relsPartFor(pagesPart)] = pagesRels.String()

	if len(td.masters) > 0 {
		var masters strings.Builder
		masters.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
		masters.WriteString(`<Masters xmlns="` + visioNamespace + `" xmlns:r="` + officeRelNamespace + `">`)
		var rels strings.Builder
		for i, m := range td.masters {
			n := i + 1
			fmt.Fprintf(&masters, `<Master ID="%s" NameU="%s" Name="%s" UniqueID="{0000000%d-0000-0000-0000-000000000000}"><Rel r:id="rId%d"/></Master>`, m.id, m.nameU, m.nameU, n, n)
			fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s" Target="master%d.xml"/>`, n, relTypeMaster, n)
			fmt.Fprintf(&ct, `<Override PartName="/visio/masters/master%d.xml" ContentType="application/vnd.ms-visio.master+xml"/>`, n)
			parts[fmt.Sprintf("visio/masters/master%d.xml", n)] = contentsXML("MasterContents", m.shapes, "")
		}
		masters.WriteString(`</Masters>`)
		parts[mastersPart] = masters.String()
		parts[relsPartFor(mastersPart)] = relsXML(rels.String())
		ct.WriteString(`<Override PartName="/visio/masters/masters.xml" ContentType="application/vnd.ms-visio.masters+xml"/>`)
	}

	if !td.noApp {
		titles := td.appTitles
		if titles == nil {
			for _, p := range td.pages {
				titles = append(titles, p.name)
			}
		}
		parts[appPart] = appXML(titles)
		ct.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	}

	ct.WriteString(`</Types>`)
	parts[contentTypesPart] = ct.String()
	parts[documentPart] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><VisioDocument xmlns="` + visioNamespace + `"/>`

	return zipParts(t, parts)
}

func contentsXML(root, shapes, connects string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<` + root + ` xmlns="` + visioNamespace + `" xmlns:r="` + officeRelNamespace + `">`)
	if shapes != "" {
		b.WriteString(`<Shapes>` + shapes + `</Shapes>`)
	}
	if connects != "" {
		b.WriteString(`<Connects>` + connects + `</Connects>`)
	}
	b.WriteString(`</` + root + `>`)
	return b.String()
}

func relsXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="` + relationshipsNamespace + `">` + body + `</Relationships>`
}

func appXML(titles []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
	b.WriteString(`<Application>Microsoft Visio</Application>`)
	fmt.Fprintf(&b, `<HeadingPairs><vt:vector size="2" baseType="variant"><vt:variant><vt:lpstr>Pages</vt:lpstr></vt:variant><vt:variant><vt:i4>%d</vt:i4></vt:variant></vt:vector></HeadingPairs>`, len(titles))
	fmt.Fprintf(&b, `<TitlesOfParts><vt:vector size="%d" baseType="lpstr">`, len(titles))
	for _, title := range titles {
		b.WriteString(`<vt:lpstr>` + title + `</vt:lpstr>`)
	}
	b.WriteString(`</vt:vector></TitlesOfParts></Properties>`)
	return b.String()
}

func zipParts(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range parts {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	config := DefaultConfig()
	config.WorkDir = t.TempDir()
	config.LogLevel = "off"
	return config
}

// open builds the drawing and opens it
func (td testDrawing) open(t *testing.T) *Document {
	t.Helper()
	doc, err := OpenReaderWithConfig(bytes.NewReader(td.build(t)), testConfig(t))
	if err != nil {
		t.Fatalf("failed to open drawing: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

// reopen saves doc to memory and opens the result
func reopen(t *testing.T, doc *Document) *Document {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := doc.SaveTo(buf); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	out, err := OpenReaderWithConfig(bytes.NewReader(buf.Bytes()), testConfig(t))
	if err != nil {
		t.Fatalf("failed to reopen drawing: %v", err)
	}
	t.Cleanup(func() { out.Close() })
	return out
}

// savedParts saves doc to memory and returns every part of the container
func savedParts(t *testing.T, doc *Document) map[string]string {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := doc.SaveTo(buf); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("failed to read saved zip: %v", err)
	}
	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		parts[f.Name] = string(content)
	}
	return parts
}

func mustPage(t *testing.T, doc *Document, index int) *Page {
	t.Helper()
	page, err := doc.Page(index)
	if err != nil {
		t.Fatalf("Page(%d) error = %v", index, err)
	}
	return page
}

func mustShape(t *testing.T, page *Page, id string) *Shape {
	t.Helper()
	shape := page.FindShapeByID(id)
	if shape == nil {
		t.Fatalf("shape %s not found on page %q", id, page.Name())
	}
	return shape
}

// shapeXML renders a simple shape with pin and size cells
func shapeXML(id string, pinX, pinY, width, height float64, text string) string {
	s := fmt.Sprintf(`<Shape ID="%s" Type="Shape"><Cell N="PinX" V="%s"/><Cell N="PinY" V="%s"/><Cell N="Width" V="%s"/><Cell N="Height" V="%s"/>`,
		id, formatFloat(pinX), formatFloat(pinY), formatFloat(width), formatFloat(height))
	if text != "" {
		s += `<Text>` + text + `</Text>`
	}
	return s + `</Shape>`
}

// allIDs returns every shape id on the page in document order
func allIDs(page *Page) []string {
	var ids []string
	for _, s := range page.AllShapes() {
		ids = append(ids, s.ID())
	}
	return ids
}

func assertUniqueIDs(t *testing.T, page *Page) {
	t.Helper()
	seen := make(map[string]bool)
	for _, id := range allIDs(page) {
		if seen[id] {
			t.Errorf("duplicate shape id %s on page %q", id, page.Name())
		}
		seen[id] = true
	}
}
