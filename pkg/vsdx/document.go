package vsdx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
)

// packageState is the package-level bookkeeping that page operations
// mutate together: the pages.xml relationships, the content types and the
// app.xml counters. Coordinator operations work on a deep copy and swap
// it in once every fallible step has succeeded.
type packageState struct {
	Rels         Relationships
	ContentTypes ContentTypes
	App          AppMetadata
}

// Document is an open Visio drawing
type Document struct {
	filename string
	dir      *workDir
	config   *Config
	logger   *Logger
	session  string

	state    packageState
	pagesXML *etree.Document
	app      *appProperties
	pages    []*Page
	masters  []*MasterPage

	// parts to delete from the staging dir on the next save
	removed []string
	closed  bool
}

// Open loads a .vsdx file using the global configuration
func Open(filename string) (*Document, error) {
	return OpenWithConfig(filename, GetGlobalConfig())
}

// OpenWithConfig loads a .vsdx file
func OpenWithConfig(filename string, config *Config) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, NewDocumentError("open", filename, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, NewDocumentError("open", filename, err)
	}

	doc, err := openReaderAt(file, info.Size(), config)
	if err != nil {
		return nil, NewDocumentError("open", filename, err)
	}
	doc.filename = filename
	return doc, nil
}

// OpenReader loads a drawing from a stream using the global configuration
func OpenReader(r io.Reader) (*Document, error) {
	return OpenReaderWithConfig(r, GetGlobalConfig())
}

// OpenReaderWithConfig loads a drawing from a stream
func OpenReaderWithConfig(r io.Reader, config *Config) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	doc, err := openReaderAt(bytes.NewReader(content), int64(len(content)), config)
	if err != nil {
		return nil, NewDocumentError("read", "", err)
	}
	return doc, nil
}

func openReaderAt(r io.ReaderAt, size int64, config *Config) (*Document, error) {
	if config == nil {
		config = GetGlobalConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	session := newSessionID()
	dir, err := newWorkDir(config.WorkDir, session)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		dir:     dir,
		config:  config,
		session: session,
		logger:  documentLogger(config, session),
	}

	if err := extractArchive(r, size, dir); err != nil {
		dir.cleanup()
		return nil, err
	}
	if err := doc.load(); err != nil {
		dir.cleanup()
		return nil, err
	}

	doc.logger.Debug("opened drawing with %d pages and %d masters in %s", len(doc.pages), len(doc.masters), dir.root)
	return doc, nil
}

func (d *Document) load() error {
	for _, part := range []string{contentTypesPart, documentPart, pagesPart} {
		if !d.dir.has(part) {
			return fmt.Errorf("%w: missing %s", ErrNotVisio, part)
		}
	}

	content, err := d.dir.read(contentTypesPart)
	if err != nil {
		return err
	}
	ct, err := parseContentTypes(content)
	if err != nil {
		return err
	}
	d.state.ContentTypes = *ct

	rels, err := d.readRels(pagesPart)
	if err != nil {
		return err
	}
	d.state.Rels = *rels

	if err := d.loadApp(); err != nil {
		return err
	}
	if err := d.loadMasters(); err != nil {
		return err
	}
	if err := d.loadPages(); err != nil {
		return err
	}

	d.reconcileApp()
	return nil
}

// readRels loads the relationships of part, or an empty set when the part
// has none
func (d *Document) readRels(part string) (*Relationships, error) {
	relsPart := relsPartFor(part)
	if !d.dir.has(relsPart) {
		return newRelationships(), nil
	}
	content, err := d.dir.read(relsPart)
	if err != nil {
		return nil, err
	}
	return parseRelationships(content)
}

func (d *Document) readTree(part string) (*etree.Document, error) {
	content, err := d.dir.read(part)
	if err != nil {
		return nil, err
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", part, err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("%s has no root element", part)
	}
	return tree, nil
}

func (d *Document) loadApp() error {
	if !d.dir.has(appPart) {
		d.logger.Warn("drawing has no %s, page counters are not tracked", appPart)
		return nil
	}
	content, err := d.dir.read(appPart)
	if err != nil {
		return err
	}
	app, meta, err := parseAppProperties(content)
	if err != nil {
		return err
	}
	d.app = app
	d.state.App = meta
	return nil
}

// relTarget returns the r:id attribute of the <Rel> child of entry
func relTarget(entry *etree.Element) string {
	rel := entry.SelectElement("Rel")
	if rel == nil {
		return ""
	}
	return rel.SelectAttrValue("r:id", "")
}

func (d *Document) loadMasters() error {
	if !d.dir.has(mastersPart) {
		return nil
	}
	tree, err := d.readTree(mastersPart)
	if err != nil {
		return err
	}
	rels, err := d.readRels(mastersPart)
	if err != nil {
		return err
	}

	for _, entry := range tree.Root().SelectElements("Master") {
		relID := relTarget(entry)
		rel, ok := rels.Get(relID)
		if !ok {
			d.logger.Warn("master %s has no relationship %q, skipped", entry.SelectAttrValue("ID", ""), relID)
			continue
		}
		part := resolveTarget(mastersPart, rel.Target)
		page, err := d.loadPagePart(entry, relID, part)
		if err != nil {
			return err
		}
		d.masters = append(d.masters, &MasterPage{Page: page})
	}
	return nil
}

func (d *Document) loadPages() error {
	tree, err := d.readTree(pagesPart)
	if err != nil {
		return err
	}
	d.pagesXML = tree

	for _, entry := range tree.Root().SelectElements("Page") {
		relID := relTarget(entry)
		rel, ok := d.state.Rels.Get(relID)
		if !ok {
			return fmt.Errorf("page %q references missing relationship %q", entry.SelectAttrValue("Name", ""), relID)
		}
		part := resolveTarget(pagesPart, rel.Target)
		page, err := d.loadPagePart(entry, relID, part)
		if err != nil {
			return err
		}
		d.pages = append(d.pages, page)
	}
	return nil
}

func (d *Document) loadPagePart(entry *etree.Element, relID, part string) (*Page, error) {
	content, err := d.dir.read(part)
	if err != nil {
		return nil, err
	}
	rels, err := d.readRels(part)
	if err != nil {
		return nil, err
	}
	return newPage(d, entry, relID, part, content, rels)
}

// reconcileApp rebuilds the page titles when app.xml disagrees with
// pages.xml
func (d *Document) reconcileApp() {
	if d.app == nil {
		d.state.App = AppMetadata{}
		for _, p := range d.pages {
			d.state.App.InsertPage(len(d.state.App.Titles), p.Name())
		}
		return
	}

	meta := d.state.App
	consistent := meta.PageCount == len(d.pages) && len(meta.Titles) >= meta.PageCount
	if consistent {
		for i, title := range meta.PageTitles() {
			if title != d.pages[i].Name() {
				consistent = false
				break
			}
		}
	}
	if consistent {
		return
	}

	d.logger.Warn("app properties list %d pages, drawing has %d, rebuilding titles", meta.PageCount, len(d.pages))
	rest := meta.Titles[len(meta.PageTitles()):]
	titles := make([]string, 0, len(d.pages)+len(rest))
	for _, p := range d.pages {
		titles = append(titles, p.Name())
	}
	d.state.App = AppMetadata{
		PageCount: len(d.pages),
		Titles:    append(titles, rest...),
	}
}

// Filename returns the path the document was opened from, if any
func (d *Document) Filename() string {
	return d.filename
}

// Config returns the configuration the document was opened with
func (d *Document) Config() *Config {
	return d.config
}

// Pages returns the pages in document order
func (d *Document) Pages() []*Page {
	return append([]*Page(nil), d.pages...)
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Page returns the page at index
func (d *Document) Page(index int) (*Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrPageNotFound, index, len(d.pages))
	}
	return d.pages[index], nil
}

// PageByName returns the page with the given name
func (d *Document) PageByName(name string) (*Page, error) {
	for _, p := range d.pages {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPageNotFound, name)
}

// Masters returns the masters of the drawing
func (d *Document) Masters() []*MasterPage {
	return append([]*MasterPage(nil), d.masters...)
}

// MasterByID returns the master with the given id, or nil
func (d *Document) MasterByID(id string) *MasterPage {
	for _, m := range d.masters {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// MasterByName returns the master with the given universal or display
// name, or nil
func (d *Document) MasterByName(name string) *MasterPage {
	for _, m := range d.masters {
		if m.NameU() == name || m.Name() == name {
			return m
		}
	}
	return nil
}

// AppMetadata returns the app.xml page bookkeeping
func (d *Document) AppMetadata() AppMetadata {
	meta := d.state.App
	meta.Titles = append([]string(nil), meta.Titles...)
	return meta
}

// FindReplace replaces text in every shape of every page
func (d *Document) FindReplace(old, new string) {
	for _, p := range d.pages {
		p.FindReplace(old, new)
	}
}

// Save writes the drawing to filename. ".vsdx" is appended when filename
// carries no Visio extension.
func (d *Document) Save(filename string) error {
	if d.closed {
		return ErrClosed
	}
	out := withExtension(filename)

	tmp, err := os.CreateTemp(filepath.Dir(out), ".vsdx-save-*")
	if err != nil {
		return NewDocumentError("save", out, err)
	}
	tmpName := tmp.Name()

	if err := d.SaveTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return NewDocumentError("save", out, err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		os.Remove(tmpName)
		return NewDocumentError("save", out, err)
	}

	d.logger.Info("saved %s", out)
	return nil
}

// SaveTo writes the drawing as a zip container to w
func (d *Document) SaveTo(w io.Writer) error {
	if d.closed {
		return ErrClosed
	}
	if d.config.StrictReferences {
		if err := d.ValidateReferences(); err != nil {
			return NewDocumentError("save", d.filename, err)
		}
	}
	if err := d.flush(); err != nil {
		return NewDocumentError("save", d.filename, err)
	}
	if err := packDirectory(d.dir, w); err != nil {
		return NewDocumentError("save", d.filename, err)
	}
	return nil
}

// flush writes every modified part into the staging dir
func (d *Document) flush() error {
	for _, part := range d.removed {
		if err := d.dir.remove(part); err != nil {
			return err
		}
	}
	d.removed = nil

	for _, p := range d.pages {
		content, err := p.marshal()
		if err != nil {
			return err
		}
		if err := d.dir.write(p.part, content); err != nil {
			return err
		}
		if len(p.rels.Relationship) > 0 || d.dir.has(relsPartFor(p.part)) {
			if err := d.writeRels(p.part, p.rels); err != nil {
				return err
			}
		}
	}

	content, err := d.pagesXML.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", pagesPart, err)
	}
	if err := d.dir.write(pagesPart, content); err != nil {
		return err
	}
	if err := d.writeRels(pagesPart, &d.state.Rels); err != nil {
		return err
	}

	content, err = d.state.ContentTypes.marshal()
	if err != nil {
		return err
	}
	if err := d.dir.write(contentTypesPart, content); err != nil {
		return err
	}

	if d.app != nil {
		content, err := d.app.marshal(d.state.App)
		if err != nil {
			return err
		}
		if err := d.dir.write(appPart, content); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) writeRels(part string, rels *Relationships) error {
	content, err := rels.marshal()
	if err != nil {
		return err
	}
	return d.dir.write(relsPartFor(part), content)
}

// Close releases the staging directory. The document is unusable
// afterwards.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.config.KeepWorkDir {
		d.logger.Info("keeping work dir %s", d.dir.root)
		return nil
	}
	if err := d.dir.cleanup(); err != nil {
		return NewDocumentError("close", d.dir.root, err)
	}
	return nil
}

// WorkDir returns the staging directory the package was extracted into
func (d *Document) WorkDir() string {
	return d.dir.root
}
