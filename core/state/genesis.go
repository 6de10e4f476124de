package state

var genesisMarkerKey = hashKey([]byte("genesis-applied"))

// GenesisApplied reports whether the initial allocations have been written.
func (m *Manager) GenesisApplied() (bool, error) {
	_, ok, err := m.get(genesisMarkerKey)
	return ok, err
}

// MarkGenesisApplied records that the initial allocations have been written.
func (m *Manager) MarkGenesisApplied() error {
	m.put(genesisMarkerKey, []byte{1})
	return nil
}
