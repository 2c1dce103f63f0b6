package vsdx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// AppMetadata is the page bookkeeping held in docProps/app.xml: the
// "Pages" count under HeadingPairs and the page names at the head of
// TitlesOfParts. Titles after the first PageCount entries belong to other
// heading groups (masters) and are preserved.
type AppMetadata struct {
	PageCount int
	Titles    []string
}

// PageTitles returns the titles that name pages
func (m AppMetadata) PageTitles() []string {
	n := m.PageCount
	if n > len(m.Titles) {
		n = len(m.Titles)
	}
	return m.Titles[:n]
}

// InsertPage records a new page title at position index among the pages
func (m *AppMetadata) InsertPage(index int, title string) {
	if index > m.PageCount {
		index = m.PageCount
	}
	m.Titles = append(m.Titles, "")
	copy(m.Titles[index+1:], m.Titles[index:])
	m.Titles[index] = title
	m.PageCount++
}

// RemovePage drops the title of the page at index
func (m *AppMetadata) RemovePage(index int) {
	if index < 0 || index >= m.PageCount || index >= len(m.Titles) {
		return
	}
	m.Titles = append(m.Titles[:index], m.Titles[index+1:]...)
	m.PageCount--
}

// RenamePage replaces the title of the page at index
func (m *AppMetadata) RenamePage(index int, title string) {
	if index >= 0 && index < m.PageCount && index < len(m.Titles) {
		m.Titles[index] = title
	}
}

// appProperties wraps the docProps/app.xml tree
type appProperties struct {
	doc *etree.Document
}

func parseAppProperties(content []byte) (*appProperties, AppMetadata, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, AppMetadata{}, fmt.Errorf("failed to parse app properties: %w", err)
	}
	if doc.Root() == nil {
		return nil, AppMetadata{}, fmt.Errorf("app properties have no root element")
	}
	props := &appProperties{doc: doc}
	return props, props.metadata(), nil
}

// headingPairs returns the variants of HeadingPairs/vector
func (a *appProperties) headingPairs() []*etree.Element {
	vector := a.doc.Root().FindElement("HeadingPairs/vector")
	if vector == nil {
		return nil
	}
	return vector.SelectElements("variant")
}

func (a *appProperties) titlesVector() *etree.Element {
	return a.doc.Root().FindElement("TitlesOfParts/vector")
}

// pagesCountElement returns the i4 that follows the "Pages" lpstr
func (a *appProperties) pagesCountElement() *etree.Element {
	variants := a.headingPairs()
	for i, v := range variants {
		label := v.SelectElement("lpstr")
		if label == nil || label.Text() != "Pages" || i+1 >= len(variants) {
			continue
		}
		return variants[i+1].SelectElement("i4")
	}
	return nil
}

func (a *appProperties) metadata() AppMetadata {
	var meta AppMetadata
	if count := a.pagesCountElement(); count != nil {
		meta.PageCount, _ = strconv.Atoi(count.Text())
	}
	if vector := a.titlesVector(); vector != nil {
		for _, title := range vector.SelectElements("lpstr") {
			meta.Titles = append(meta.Titles, title.Text())
		}
	}
	return meta
}

// apply writes meta back into the tree, keeping the vector size in sync
func (a *appProperties) apply(meta AppMetadata) {
	if count := a.pagesCountElement(); count != nil {
		count.SetText(strconv.Itoa(meta.PageCount))
	}

	vector := a.titlesVector()
	if vector == nil {
		return
	}
	space := ""
	if existing := vector.SelectElement("lpstr"); existing != nil {
		space = existing.Space
	} else {
		space = vector.Space
	}
	for _, title := range vector.SelectElements("lpstr") {
		vector.RemoveChild(title)
	}
	for _, title := range meta.Titles {
		el := vector.CreateElement("lpstr")
		el.Space = space
		el.SetText(title)
	}
	vector.CreateAttr("size", strconv.Itoa(len(meta.Titles)))
}

func (a *appProperties) marshal(meta AppMetadata) ([]byte, error) {
	a.apply(meta)
	out, err := a.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write app properties: %w", err)
	}
	return out, nil
}
