// Package cache provides a tiered memoization engine.
//
// An Engine keeps encoded values in an in-process LocalStore and, when a
// Backend is configured, mirrors writes to a shared remote store. Reads try
// the remote tier first and fall back to the local tier. Remote failures and
// timeouts are logged and absorbed; they never reach the caller.
//
// Keys for memoized computations are derived by a Keyer from a namespace,
// an explicit identity and the call arguments. Memoize wraps a computation so
// repeated calls with equal arguments are served from the engine.
package cache
