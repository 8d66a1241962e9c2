package domain

import "errors"

// ErrAlreadyOwned is returned when a node that already belongs to a graph is added to a graph.
var ErrAlreadyOwned = errors.New("node already owned by a graph")

// ErrTypeMismatch is returned when a value or edge does not match a port's declared type.
var ErrTypeMismatch = errors.New("port type mismatch")

// ErrPortOccupied is returned when connecting into an input port that already has an edge.
var ErrPortOccupied = errors.New("input port already connected")

// ErrCycleDetected is returned when a connection would make the graph cyclic.
var ErrCycleDetected = errors.New("connection would create a cycle")

// ErrNodeNotFound is returned when a node is not part of the graph being addressed.
var ErrNodeNotFound = errors.New("node not found")

// ErrNodeEvaluationDegraded marks a node that produced fallback outputs. It is never fatal to a pass.
var ErrNodeEvaluationDegraded = errors.New("node evaluation degraded")

// ErrDuplicateNodeID is returned when a graph already holds a node with the same identifier.
var ErrDuplicateNodeID = errors.New("duplicate node id")

// ErrPortNotFound is returned when a node has no port with the requested name.
var ErrPortNotFound = errors.New("port not found")

// ErrInvalidPort is returned when a port is used in the wrong direction.
var ErrInvalidPort = errors.New("invalid port direction")

// ErrUnknownKind is returned by the registry for unregistered node kinds.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrProjectNotFound is returned when a project ID cannot be found in the store.
var ErrProjectNotFound = errors.New("project not found")
