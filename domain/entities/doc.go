// Package entities provides the core domain types of the binding surface:
// export descriptors, the module manifest, and the JSON wire structures
// exchanged between a host runtime and the guest module.
package entities
