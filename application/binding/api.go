package binding

import (
	"fmt"
	"log/slog"
)

// Version is the version of the binding layer, reported as SDKVersion in
// every manifest.
const Version = "0.1.0"

// Internal variable to hold the export table served by the guest exports.
var registered *Registry

// Register installs reg as the export table served by _manifest and
// _invoke. The guest main calls this once; later calls are ignored.
func Register(reg *Registry) {
	if registered != nil {
		slog.Warn("binding: registry already registered, ignoring second call", "registry_addr", fmt.Sprintf("%p", registered))
		return
	}
	registered = reg
	slog.Debug("binding: registry registered", "exports", reg.Names())
}

// Registered returns the registry installed with Register, or nil.
func Registered() *Registry {
	return registered
}
