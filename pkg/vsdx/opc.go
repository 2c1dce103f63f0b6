package vsdx

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	relationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
	contentTypesNamespace  = "http://schemas.openxmlformats.org/package/2006/content-types"
	officeRelNamespace     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relTypePage   = "http://schemas.microsoft.com/visio/2010/relationships/page"
	relTypeMaster = "http://schemas.microsoft.com/visio/2010/relationships/master"

	contentTypePage = "application/vnd.ms-visio.page+xml"
)

// Relationship is one entry of a .rels part
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Relationships is the content of a .rels part
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

func newRelationships() *Relationships {
	return &Relationships{Namespace: relationshipsNamespace}
}

func parseRelationships(content []byte) (*Relationships, error) {
	var rels Relationships
	if err := xml.Unmarshal(content, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}
	// Marshal would emit xmlns twice otherwise
	rels.XMLName = xml.Name{}
	if rels.Namespace == "" {
		rels.Namespace = relationshipsNamespace
	}
	return &rels, nil
}

func (r *Relationships) marshal() ([]byte, error) {
	out, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relationships: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Get returns the relationship with the given id
func (r *Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r.Relationship {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// ByTarget returns the first relationship of the given type pointing at target
func (r *Relationships) ByTarget(relType, target string) (Relationship, bool) {
	for _, rel := range r.Relationship {
		if rel.Type == relType && rel.Target == target {
			return rel, true
		}
	}
	return Relationship{}, false
}

var relIDRegex = regexp.MustCompile(`^rId(\d+)$`)

// NextID returns rId<max+1> over the existing ids
func (r *Relationships) NextID() string {
	max := 0
	for _, rel := range r.Relationship {
		if m := relIDRegex.FindStringSubmatch(rel.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return "rId" + strconv.Itoa(max+1)
}

// Add appends a relationship with a fresh id and returns the id
func (r *Relationships) Add(relType, target string) string {
	id := r.NextID()
	r.Relationship = append(r.Relationship, Relationship{ID: id, Type: relType, Target: target})
	return id
}

// Remove drops the relationship with the given id
func (r *Relationships) Remove(id string) bool {
	for i, rel := range r.Relationship {
		if rel.ID == id {
			r.Relationship = append(r.Relationship[:i], r.Relationship[i+1:]...)
			return true
		}
	}
	return false
}

// ContentTypeDefault maps an extension to a media type
type ContentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypeOverride maps a single part to a media type
type ContentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypes is the content of [Content_Types].xml
type ContentTypes struct {
	XMLName   xml.Name              `xml:"Types"`
	Namespace string                `xml:"xmlns,attr"`
	Defaults  []ContentTypeDefault  `xml:"Default"`
	Overrides []ContentTypeOverride `xml:"Override"`
}

func parseContentTypes(content []byte) (*ContentTypes, error) {
	var ct ContentTypes
	if err := xml.Unmarshal(content, &ct); err != nil {
		return nil, fmt.Errorf("failed to parse content types: %w", err)
	}
	ct.XMLName = xml.Name{}
	if ct.Namespace == "" {
		ct.Namespace = contentTypesNamespace
	}
	return &ct, nil
}

func (c *ContentTypes) marshal() ([]byte, error) {
	out, err := xml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content types: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Override returns the media type registered for a part, if any
func (c *ContentTypes) Override(part string) (string, bool) {
	name := "/" + strings.TrimPrefix(part, "/")
	for _, o := range c.Overrides {
		if o.PartName == name {
			return o.ContentType, true
		}
	}
	return "", false
}

// SetOverride registers or replaces the media type of a part
func (c *ContentTypes) SetOverride(part, contentType string) {
	name := "/" + strings.TrimPrefix(part, "/")
	for i, o := range c.Overrides {
		if o.PartName == name {
			c.Overrides[i].ContentType = contentType
			return
		}
	}
	c.Overrides = append(c.Overrides, ContentTypeOverride{PartName: name, ContentType: contentType})
}

// RemoveOverride drops the entry for a part
func (c *ContentTypes) RemoveOverride(part string) bool {
	name := "/" + strings.TrimPrefix(part, "/")
	for i, o := range c.Overrides {
		if o.PartName == name {
			c.Overrides = append(c.Overrides[:i], c.Overrides[i+1:]...)
			return true
		}
	}
	return false
}

// PartsOfType lists the parts registered with contentType, sorted
func (c *ContentTypes) PartsOfType(contentType string) []string {
	var parts []string
	for _, o := range c.Overrides {
		if o.ContentType == contentType {
			parts = append(parts, strings.TrimPrefix(o.PartName, "/"))
		}
	}
	sort.Strings(parts)
	return parts
}
