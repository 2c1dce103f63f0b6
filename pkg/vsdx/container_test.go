package vsdx

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWithExtension(t *testing.T) {
	tests := map[string]string{
		"out":          "out.vsdx",
		"out.vsdx":     "out.vsdx",
		"OUT.VSDX":     "OUT.VSDX",
		"macro.vsdm":   "macro.vsdm",
		"drawing.docx": "drawing.docx.vsdx",
	}
	for in, want := range tests {
		if got := withExtension(in); got != want {
			t.Errorf("withExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelsPartFor(t *testing.T) {
	tests := map[string]string{
		"visio/pages/page1.xml": "visio/pages/_rels/page1.xml.rels",
		"visio/pages/pages.xml": "visio/pages/_rels/pages.xml.rels",
		"":                      "_rels/.rels",
	}
	for in, want := range tests {
		if got := relsPartFor(in); got != want {
			t.Errorf("relsPartFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"visio/pages/pages.xml", "page1.xml", "visio/pages/page1.xml"},
		{"visio/pages/page1.xml", "../masters/master1.xml", "visio/masters/master1.xml"},
		{"visio/document.xml", "/visio/pages/pages.xml", "visio/pages/pages.xml"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.source, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
		}
	}
}

func TestExtractArchive(t *testing.T) {
	t.Run("extracts parts", func(t *testing.T) {
		data := zipParts(t, map[string]string{
			"a.xml":         "<a/>",
			"visio/b/c.xml": "<c/>",
		})
		dir, err := newWorkDir(t.TempDir(), "test")
		if err != nil {
			t.Fatal(err)
		}
		if err := extractArchive(bytes.NewReader(data), int64(len(data)), dir); err != nil {
			t.Fatalf("extractArchive() error = %v", err)
		}
		if !dir.has("visio/b/c.xml") {
			t.Error("nested part not extracted")
		}
		content, err := dir.read("a.xml")
		if err != nil || string(content) != "<a/>" {
			t.Errorf("read(a.xml) = %q, %v", content, err)
		}
	})

	t.Run("rejects parts outside the root", func(t *testing.T) {
		data := zipParts(t, map[string]string{"../evil.xml": "<x/>"})
		parent := t.TempDir()
		dir, err := newWorkDir(parent, "test")
		if err != nil {
			t.Fatal(err)
		}
		if err := extractArchive(bytes.NewReader(data), int64(len(data)), dir); err == nil {
			t.Fatal("expected an error for a part escaping the work dir")
		}
		if _, err := os.Stat(filepath.Join(parent, "evil.xml")); !os.IsNotExist(err) {
			t.Error("escaping part was written")
		}
	})

	t.Run("rejects non-zip input", func(t *testing.T) {
		dir, err := newWorkDir(t.TempDir(), "test")
		if err != nil {
			t.Fatal(err)
		}
		data := []byte("not a zip")
		if err := extractArchive(bytes.NewReader(data), int64(len(data)), dir); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestPackDirectory(t *testing.T) {
	dir, err := newWorkDir(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	for _, part := range []string{"visio/document.xml", "docProps/app.xml", contentTypesPart} {
		if err := dir.write(part, []byte("<x/>")); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := packDirectory(dir, &buf); err != nil {
		t.Fatalf("packDirectory() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{contentTypesPart, "docProps/app.xml", "visio/document.xml"}
	if len(zr.File) != len(want) {
		t.Fatalf("got %d entries, want %d", len(zr.File), len(want))
	}
	for i, f := range zr.File {
		if f.Name != want[i] {
			t.Errorf("entry %d = %s, want %s", i, f.Name, want[i])
		}
	}

	if err := dir.remove("docProps/app.xml"); err != nil {
		t.Fatal(err)
	}
	if err := dir.remove("docProps/app.xml"); err != nil {
		t.Errorf("removing a missing part should succeed: %v", err)
	}
	if err := dir.cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir.root); !os.IsNotExist(err) {
		t.Error("cleanup left the work dir behind")
	}
}
