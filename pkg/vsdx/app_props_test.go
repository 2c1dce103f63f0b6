package vsdx

import (
	"reflect"
	"strings"
	"testing"
)

func TestAppMetadata(t *testing.T) {
	tests := []struct {
		name   string
		start  AppMetadata
		modify func(*AppMetadata)
		want   AppMetadata
	}{
		{
			name:   "insert in the middle",
			start:  AppMetadata{PageCount: 2, Titles: []string{"A", "B"}},
			modify: func(m *AppMetadata) { m.InsertPage(1, "X") },
			want:   AppMetadata{PageCount: 3, Titles: []string{"A", "X", "B"}},
		},
		{
			name:   "insert keeps master titles after the pages",
			start:  AppMetadata{PageCount: 1, Titles: []string{"A", "Box"}},
			modify: func(m *AppMetadata) { m.InsertPage(5, "Z") },
			want:   AppMetadata{PageCount: 2, Titles: []string{"A", "Z", "Box"}},
		},
		{
			name:   "remove",
			start:  AppMetadata{PageCount: 2, Titles: []string{"A", "B", "Box"}},
			modify: func(m *AppMetadata) { m.RemovePage(0) },
			want:   AppMetadata{PageCount: 1, Titles: []string{"B", "Box"}},
		},
		{
			name:   "remove out of range is ignored",
			start:  AppMetadata{PageCount: 1, Titles: []string{"A", "Box"}},
			modify: func(m *AppMetadata) { m.RemovePage(1) },
			want:   AppMetadata{PageCount: 1, Titles: []string{"A", "Box"}},
		},
		{
			name:   "rename",
			start:  AppMetadata{PageCount: 2, Titles: []string{"A", "B"}},
			modify: func(m *AppMetadata) { m.RenamePage(1, "C") },
			want:   AppMetadata{PageCount: 2, Titles: []string{"A", "C"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := tt.start
			tt.modify(&meta)
			if !reflect.DeepEqual(meta, tt.want) {
				t.Errorf("got %+v, want %+v", meta, tt.want)
			}
		})
	}
}

func TestAppProperties(t *testing.T) {
	props, meta, err := parseAppProperties([]byte(appXML([]string{"One", "Two"})))
	if err != nil {
		t.Fatalf("parseAppProperties() error = %v", err)
	}
	if meta.PageCount != 2 || !reflect.DeepEqual(meta.PageTitles(), []string{"One", "Two"}) {
		t.Fatalf("metadata = %+v", meta)
	}

	meta.InsertPage(2, "Three")
	out, err := props.marshal(meta)
	if err != nil {
		t.Fatalf("marshal() error = %v", err)
	}
	s := string(out)
	for _, want := range []string{"<vt:i4>3</vt:i4>", `size="3"`, "<vt:lpstr>Three</vt:lpstr>", "<vt:lpstr>Pages</vt:lpstr>"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in:\n%s", want, s)
		}
	}

	_, again, err := parseAppProperties(out)
	if err != nil {
		t.Fatalf("parseAppProperties(marshalled) error = %v", err)
	}
	if !reflect.DeepEqual(again, meta) {
		t.Errorf("round trip = %+v, want %+v", again, meta)
	}

	if _, _, err := parseAppProperties([]byte("")); err == nil {
		t.Error("expected an error for an empty document")
	}
}
