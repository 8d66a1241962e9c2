/*
Package domain contains the core value types shared by the compositor graph, evaluator and adapters.

It is kept free of I/O and persistence concerns, following Hexagonal Architecture principles.

# Key Entities

  - Value: a closed tagged variant (number, boolean, string, time, color, texture) carried by ports.
  - Time: an exact rational timeline position used as evaluation and cache key.
  - Parameter: the value of an unconnected input port, optionally keyframed over time.
  - Frame: the result of evaluating a sink node, delivered to a FrameConsumer.
  - LifecycleHooks: observability callbacks fired by the evaluator.
*/
package domain
