// Package binding maps export names to typed Go functions.
//
// A Registry is the export table of a module. It is built once with
// functional options and never changes afterwards, so lookups need no
// locking:
//
//	reg, err := binding.NewRegistry(
//	    binding.WithModuleInfo("demo", "1.0.0", "Go edition"),
//	    binding.WithMiddleware(binding.PanicRecoveryMiddleware()),
//	    binding.WithFunc("add", "Add two integers", addFunc),
//	)
//
// Each export takes a JSON object of named arguments and returns a JSON
// value. Argument structs use `json` tags for names, `desc` tags for
// descriptions and `validate` tags (go-playground/validator) for presence
// checks. The registry derives a manifest entry with a JSON schema for
// every export.
//
// In guest builds (GOOS=wasip1) the registry passed to Register is served
// through the _manifest and _invoke wasm exports.
package binding
