// Package host loads demopy guest modules and calls their exports.
//
// An Executor owns a wazero runtime with WASI and the demopy_host module
// instantiated. LoadModule returns an Instance exposing the guest's direct
// typed exports (Hello, Add, Multiply, SumList, ReverseString, Power) and
// the JSON call envelope (Manifest, Invoke). Arguments passed to Invoke are
// checked against the export's JSON schema on the host before the guest is
// entered.
//
// An Instance serializes its calls. A Pool keeps several instances of one
// compiled module for concurrent callers and replaces instances that a call
// timeout interrupted.
//
// Host configuration (engine, memory limit, call timeout, log level, pool
// size) is read from YAML with LoadConfig and applied with WithConfig.
package host
