package scene

// LocalModel is the ordered set of data groups owned by one process.
//
// A model with no groups marks a passive process (e.g. a display-only head
// node) that must not receive commands expecting content.
type LocalModel struct {
	groups []*DataGroup
}

// NewLocalModel creates an empty (passive) model.
func NewLocalModel() *LocalModel {
	return &LocalModel{}
}

// Add appends a data group.
func (m *LocalModel) Add(g *DataGroup) {
	m.groups = append(m.groups, g)
}

// Groups returns the data groups in load order.
func (m *LocalModel) Groups() []*DataGroup {
	return m.groups
}

// Size returns the number of data groups.
func (m *LocalModel) Size() int {
	return len(m.groups)
}

// IsPassive reports whether the model owns no data groups.
func (m *LocalModel) IsPassive() bool {
	return len(m.groups) == 0
}

// Group returns the data group with the given ID, or nil.
func (m *LocalModel) Group(id int) *DataGroup {
	for _, g := range m.groups {
		if g.ID == id {
			return g
		}
	}

	return nil
}

// Bounds folds the bounds of every local group.
func (m *LocalModel) Bounds() Bounds {
	b := EmptyBounds()
	for _, g := range m.groups {
		b.Extend(g.Bounds())
	}

	return b
}
