/*
Package observability provides tools for monitoring the compositor evaluator.

It turns evaluator lifecycle events into Prometheus metrics and structured logs, and
chains several hook sets into one so they can be installed together.
*/
package observability
