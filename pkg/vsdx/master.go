package vsdx

// MasterPage is a reusable shape template stored under visio/masters.
// Instances on pages reference it through their Master attribute.
type MasterPage struct {
	*Page
}

// NameU returns the universal name of the master
func (m *MasterPage) NameU() string {
	return m.entry.SelectAttrValue("NameU", "")
}

// UniqueID returns the GUID of the master
func (m *MasterPage) UniqueID() string {
	return m.entry.SelectAttrValue("UniqueID", "")
}

// RootShape returns the first top-level shape of the master, or nil for
// an empty master
func (m *MasterPage) RootShape() *Shape {
	shapes := m.ChildShapes()
	if len(shapes) == 0 {
		return nil
	}
	return shapes[0]
}

func (m *MasterPage) String() string {
	return "<Master ID=" + m.ID() + " NameU=" + m.NameU() + ">"
}
