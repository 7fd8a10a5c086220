// Package observe provides the logging, metrics and tracing primitives used by
// the cache engine and the tieredcache binary.
//
// It is an instrumentation library: it sets up OpenTelemetry providers and
// exporters but performs no caching or transport of its own. The engine takes
// a Logger and a CacheMetrics; the Monitor wraps arbitrary functions with a
// span, a duration and memory measurement, and a slow-call warning.
package observe
