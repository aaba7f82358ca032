package entities

// Manifest describes a binding module and its complete export table.
type Manifest struct {
	Name       string             `json:"name" yaml:"name"`
	Version    string             `json:"version" yaml:"version"`
	Edition    string             `json:"edition,omitempty" yaml:"edition,omitempty"`
	SDKVersion string             `json:"sdk_version,omitempty" yaml:"sdk_version,omitempty"`
	Exports    []ExportDescriptor `json:"exports" yaml:"exports"`
}

// Export returns the descriptor registered under name.
func (m *Manifest) Export(name string) (ExportDescriptor, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return ExportDescriptor{}, false
}

// ExportNames returns the export names in manifest order.
func (m *Manifest) ExportNames() []string {
	names := make([]string, len(m.Exports))
	for i, e := range m.Exports {
		names[i] = e.Name
	}
	return names
}
