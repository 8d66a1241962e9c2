/*
Package ports defines the driven and driving ports (interfaces) for the compositor.

These interfaces decouple the graph and evaluator from storage backends, project
sources and the transports that expose them.

# Key Interfaces

  - ProjectStore: persists project documents (memory, file, Redis, encrypted).
  - DocumentLoader: reads a project from a directory of node files (Loam).
  - Watchable: signals that a project source changed and should be reloaded.
  - DistributedLocker: serializes project access across processes.
  - Compositor: the operations HTTP and MCP adapters expose.
*/
package ports
