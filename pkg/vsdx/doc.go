// Package vsdx reads, edits and writes Microsoft Visio drawings (.vsdx).
//
// A drawing is opened into a staging directory, its pages and masters are
// parsed into XML trees, and every edit works on those trees until Save
// packs the directory back into a zip container.
//
// Basic Usage:
//
//	doc, err := vsdx.Open("network.vsdx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
//	page, _ := doc.Page(0)
//	server := page.FindShapeByText("server")
//	server.SetText("web-01")
//	server.Move(1.5, 0)
//
//	if err := doc.Save("network-out.vsdx"); err != nil {
//	    log.Fatal(err)
//	}
//
// Shapes inherit cells, text, geometry and shape data from their master.
// Reads fall through to the master; writes copy the value onto the
// instance first, so masters are never changed through an instance.
//
// Directives:
//
// Shape text and page names may carry template directives, rendered by
// Document.Expand:
//
// Values: {{ host.name }}, {{ upper(label) }}
//
// Repeat a shape (or a run of sibling shapes up to {% endfor %}):
// {% for host in hosts %}
//
// Hide a shape or, in a page name, a whole page: {% showif hosts %}
//
// See package template for expression syntax and built-in functions.
package vsdx
