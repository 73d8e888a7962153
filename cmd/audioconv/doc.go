// Package main hosts the audioconv CLI entrypoint and command graph.
//
// `audioconv serve` runs the HTTP upload service. The remaining commands
// work directly against the configured directories and catalog: converting a
// local file, listing and pruning published outputs, reporting dependency
// health, and scaffolding configuration.
//
// Keep this package thin. Behaviour belongs in the internal packages; commands
// here only resolve configuration, wire components and render output.
package main
