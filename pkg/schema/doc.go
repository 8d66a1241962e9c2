// Package schema defines the persisted form of a compositor project.
//
// A Document lists nodes (identifier, kind, kind configuration and input parameters)
// and the edges between them. Node identifiers are written verbatim, so a graph saved
// with FromGraph and rebuilt with Build keeps every identifier stable across the round
// trip. Texture parameters are never persisted; footage is resolved again at load time.
//
// Documents encode to YAML or JSON:
//
//	version: 1
//	name: New Graph
//	nodes:
//	  - id: solid
//	    kind: solid
//	    params:
//	      color: {value: "#ff0000ff"}
//	  - id: viewer
//	    kind: viewer
//	    config: {type: texture}
//	edges:
//	  - from: solid.texture
//	    to: viewer.texture
//
// Parameter values are typed by the port they land on: numbers and booleans use the
// native scalar, times use "n/d" strings, and colors accept "#rrggbb", "#rrggbbaa" or an
// SVG color name.
package schema
