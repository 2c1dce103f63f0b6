package vsdx

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func pageNames(doc *Document) []string {
	var names []string
	for _, p := range doc.Pages() {
		names = append(names, p.Name())
	}
	return names
}

func TestDocument_AddPage(t *testing.T) {
	tests := []struct {
		name      string
		pageName  string
		pos       Position
		wantNames []string
		wantIndex int
	}{
		{"last", "C", Last(), []string{"A", "B", "C"}, 2},
		{"first", "C", First(), []string{"C", "A", "B"}, 0},
		{"before", "C", Before("B"), []string{"A", "C", "B"}, 1},
		{"after", "C", After("A"), []string{"A", "C", "B"}, 1},
		{"at index", "C", AtIndex(2), []string{"A", "B", "C"}, 2},
		{"duplicate name", "A", Last(), []string{"A", "B", "A-1"}, 2},
		{"default name", "", Last(), []string{"A", "B", "Page-3"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDrawing{pages: []testPage{{name: "A"}, {name: "B"}}}.open(t)

			page, err := doc.AddPage(tt.pageName, tt.pos)
			if err != nil {
				t.Fatalf("AddPage() error = %v", err)
			}
			if page.Index() != tt.wantIndex {
				t.Errorf("Index() = %d, want %d", page.Index(), tt.wantIndex)
			}
			if got := pageNames(doc); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("pages = %v, want %v", got, tt.wantNames)
			}

			meta := doc.AppMetadata()
			if meta.PageCount != 3 || !reflect.DeepEqual(meta.PageTitles(), tt.wantNames) {
				t.Errorf("app metadata = %+v, want titles %v", meta, tt.wantNames)
			}
			if page.Part() != "visio/pages/page3.xml" {
				t.Errorf("Part() = %q", page.Part())
			}
			if page.ID() != "2" {
				t.Errorf("ID() = %q, want 2", page.ID())
			}
			if page.Width() != 8.5 {
				t.Errorf("Width() = %v, want page sheet copied from the first page", page.Width())
			}

			out := reopen(t, doc)
			if got := pageNames(out); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("reopened pages = %v, want %v", got, tt.wantNames)
			}
			if got := out.AppMetadata(); got.PageCount != 3 || !reflect.DeepEqual(got.PageTitles(), tt.wantNames) {
				t.Errorf("reopened app metadata = %+v", got)
			}
		})
	}
}

func TestDocument_AddPageInvalidPosition(t *testing.T) {
	tests := []struct {
		name    string
		pos     Position
		wantErr error
	}{
		{"index past end", AtIndex(3), ErrInvalidPosition},
		{"negative index", AtIndex(-1), ErrInvalidPosition},
		{"unknown before", Before("Z"), ErrPageNotFound},
		{"unknown after", After("Z"), ErrPageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDrawing{pages: []testPage{{name: "A"}, {name: "B"}}}.open(t)

			if _, err := doc.AddPage("C", tt.pos); !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddPage() error = %v, want %v", err, tt.wantErr)
			}

			if doc.PageCount() != 2 {
				t.Errorf("PageCount() = %d, want 2", doc.PageCount())
			}
			if meta := doc.AppMetadata(); meta.PageCount != 2 || len(meta.Titles) != 2 {
				t.Errorf("app metadata changed: %+v", meta)
			}
			if len(doc.state.Rels.Relationship) != 2 {
				t.Errorf("relationships changed: %+v", doc.state.Rels.Relationship)
			}
			if got := doc.state.ContentTypes.PartsOfType(contentTypePage); len(got) != 2 {
				t.Errorf("content types changed: %v", got)
			}
		})
	}
}

func TestDocument_RemovePage(t *testing.T) {
	doc := testDrawing{pages: []testPage{
		{name: "A", shapes: shapeXML("1", 1, 1, 1, 1, "a")},
		{name: "B", shapes: shapeXML("1", 1, 1, 1, 1, "b")},
	}}.open(t)

	removed := mustPage(t, doc, 0)
	if err := doc.RemovePage(0); err != nil {
		t.Fatalf("RemovePage() error = %v", err)
	}
	if removed.Index() != -1 {
		t.Errorf("removed page Index() = %d, want -1", removed.Index())
	}
	if got := pageNames(doc); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("pages = %v, want [B]", got)
	}
	if err := doc.RemovePage(1); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("RemovePage(1) error = %v, want ErrInvalidPosition", err)
	}

	parts := savedParts(t, doc)
	if _, ok := parts["visio/pages/page1.xml"]; ok {
		t.Error("page1.xml still in the container")
	}
	if strings.Contains(parts[contentTypesPart], "page1.xml") {
		t.Error("content types still list page1.xml")
	}
	if strings.Contains(parts[relsPartFor(pagesPart)], "page1.xml") {
		t.Error("pages relationships still target page1.xml")
	}
	if !strings.Contains(parts[appPart], `<vt:i4>1</vt:i4>`) {
		t.Errorf("app.xml page count not updated:\n%s", parts[appPart])
	}
	if strings.Contains(parts[appPart], `<vt:lpstr>A</vt:lpstr>`) {
		t.Error("app.xml still lists page A")
	}
	if !strings.Contains(parts[appPart], `size="1"`) {
		t.Error("app.xml titles vector size not updated")
	}

	out := reopen(t, doc)
	if got := mustShape(t, mustPage(t, out, 0), "1").Text(); got != "b" {
		t.Errorf("remaining page text = %q, want b", got)
	}
}

func TestDocument_RemoveThenAddReusesPart(t *testing.T) {
	doc := testDrawing{pages: []testPage{{name: "A"}, {name: "B"}}}.open(t)

	if err := doc.RemovePage(1); err != nil {
		t.Fatal(err)
	}
	page, err := doc.AddPage("C", Last())
	if err != nil {
		t.Fatal(err)
	}
	if page.Part() != "visio/pages/page2.xml" {
		t.Errorf("Part() = %q, want page2.xml", page.Part())
	}

	parts := savedParts(t, doc)
	if _, ok := parts["visio/pages/page2.xml"]; !ok {
		t.Error("page2.xml missing from the container")
	}
	out := reopen(t, doc)
	if got := pageNames(out); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Errorf("pages = %v, want [A C]", got)
	}
}

func TestDocument_CopyPage(t *testing.T) {
	doc := groupDrawing().open(t)
	src := mustPage(t, doc, 0)

	copied, err := doc.CopyPage(src, "", After(src.Name()))
	if err != nil {
		t.Fatalf("CopyPage() error = %v", err)
	}
	if copied.Name() != "Page-1-1" {
		t.Errorf("Name() = %q, want Page-1-1", copied.Name())
	}
	if copied.MaxID() != src.MaxID() {
		t.Errorf("MaxID() = %d, want %d", copied.MaxID(), src.MaxID())
	}
	if len(copied.Connects()) != 2 {
		t.Errorf("Connects() = %d, want 2", len(copied.Connects()))
	}
	if len(copied.rels.Relationship) != 1 {
		t.Errorf("page rels = %+v, want the master relationship", copied.rels.Relationship)
	}

	mustShape(t, copied, "8").SetText("changed")
	if got := mustShape(t, src, "8").Text(); got != "label" {
		t.Errorf("source text = %q, want unchanged", got)
	}

	out := reopen(t, doc)
	page, err := out.PageByName("Page-1-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := mustShape(t, page, "8").Text(); got != "changed" {
		t.Errorf("reopened copy text = %q", got)
	}
	if got := mustShape(t, page, "9").Width(); got != 2 {
		t.Errorf("reopened copy Width() = %v, want 2 from master", got)
	}
}

func TestDocument_AppReconcile(t *testing.T) {
	doc := testDrawing{
		pages:     []testPage{{name: "A"}, {name: "B"}},
		appTitles: []string{"Stale"},
	}.open(t)

	meta := doc.AppMetadata()
	if meta.PageCount != 2 || !reflect.DeepEqual(meta.PageTitles(), []string{"A", "B"}) {
		t.Errorf("app metadata = %+v, want rebuilt titles", meta)
	}
}

func TestDocument_WithoutAppProperties(t *testing.T) {
	doc := testDrawing{pages: []testPage{{name: "A"}}, noApp: true}.open(t)

	if _, err := doc.AddPage("B", Last()); err != nil {
		t.Fatalf("AddPage() error = %v", err)
	}
	parts := savedParts(t, doc)
	if _, ok := parts[appPart]; ok {
		t.Error("app.xml should not be created")
	}
	if got := doc.AppMetadata().PageCount; got != 2 {
		t.Errorf("PageCount = %d, want 2", got)
	}
}

func TestPosition_String(t *testing.T) {
	tests := []struct {
		pos  Position
		want string
	}{
		{First(), "first"},
		{Last(), "last"},
		{AtIndex(3), "index 3"},
		{Before("A"), `before "A"`},
		{After("B"), `after "B"`},
	}
	for _, tt := range tests {
		if got := tt.pos.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
