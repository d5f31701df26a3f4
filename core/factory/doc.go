// Package factory provides a small generic registry used to build pluggable
// components from configuration. A component is addressed by a type string
// plus a map of raw settings; factories decode the settings into typed
// structs and return the concrete implementation.
package factory
