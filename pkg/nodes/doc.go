// Package nodes provides the built-in node kinds: constant, time, math, solid, image,
// switch and the viewer sink. Register adds them to a registry so project documents can
// refer to them by name.
package nodes
