package vsdx

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// Parts every Visio package must carry
const (
	contentTypesPart = "[Content_Types].xml"
	documentPart     = "visio/document.xml"
	pagesPart        = "visio/pages/pages.xml"
	appPart          = "docProps/app.xml"
	mastersPart      = "visio/masters/masters.xml"
)

// workDir is the staging directory an archive is extracted into. Part
// names are slash-separated paths relative to the archive root.
type workDir struct {
	root string
}

// newWorkDir creates an empty staging directory under parent
func newWorkDir(parent, session string) (*workDir, error) {
	root, err := os.MkdirTemp(parent, "vsdx-"+session+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	return &workDir{root: root}, nil
}

func newSessionID() string {
	return uuid.NewString()
}

func (w *workDir) path(part string) string {
	return filepath.Join(w.root, filepath.FromSlash(part))
}

func (w *workDir) has(part string) bool {
	info, err := os.Stat(w.path(part))
	return err == nil && !info.IsDir()
}

func (w *workDir) read(part string) ([]byte, error) {
	content, err := os.ReadFile(w.path(part))
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", part, err)
	}
	return content, nil
}

func (w *workDir) write(part string, content []byte) error {
	p := w.path(part)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for part %s: %w", part, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return fmt.Errorf("failed to write part %s: %w", part, err)
	}
	return nil
}

func (w *workDir) remove(part string) error {
	if err := os.Remove(w.path(part)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove part %s: %w", part, err)
	}
	return nil
}

func (w *workDir) cleanup() error {
	return os.RemoveAll(w.root)
}

// extractArchive unpacks a zip container into dir
func extractArchive(r io.ReaderAt, size int64, dir *workDir) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("failed to read zip file: %w", err)
	}

	for _, file := range zr.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}

		name := path.Clean(strings.TrimPrefix(file.Name, "/"))
		if name == "." || name == ".." || strings.HasPrefix(name, "../") {
			return fmt.Errorf("illegal part name %q", file.Name)
		}

		if err := extractFile(file, dir, name); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(file *zip.File, dir *workDir, name string) error {
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open part %s: %w", name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("failed to read part %s: %w", name, err)
	}

	return dir.write(name, content)
}

// packDirectory writes every file under dir into a zip container.
// [Content_Types].xml goes first, the rest in lexical order.
func packDirectory(dir *workDir, w io.Writer) error {
	var parts []string
	err := filepath.WalkDir(dir.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir.root, p)
		if err != nil {
			return err
		}
		parts = append(parts, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list work dir: %w", err)
	}

	sort.Slice(parts, func(i, j int) bool {
		if parts[i] == contentTypesPart {
			return parts[j] != contentTypesPart
		}
		if parts[j] == contentTypesPart {
			return false
		}
		return parts[i] < parts[j]
	})

	zw := zip.NewWriter(w)
	for _, part := range parts {
		content, err := dir.read(part)
		if err != nil {
			zw.Close()
			return err
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   part,
			Method: zip.Deflate,
		})
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to create zip entry %s: %w", part, err)
		}
		if _, err := fw.Write(content); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write zip entry %s: %w", part, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

// withExtension appends ".vsdx" to filename unless it already ends in a
// Visio drawing extension
func withExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".vsdx" || ext == ".vsdm" {
		return filename
	}
	return filename + ".vsdx"
}

// relsPartFor returns the relationships part of a part,
// e.g. visio/pages/page1.xml -> visio/pages/_rels/page1.xml.rels
func relsPartFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// resolveTarget resolves a relationship target relative to its source part
func resolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(sourcePart), target))
}
