// Package secret resolves secrets referenced from tieredcache configuration.
//
// Config string values pass through a Resolver, which performs strict
// environment expansion and then replaces secret references:
//
//	redis:
//	  password: secretref:env:REDIS_PASSWORD
//	  addr: ${REDIS_HOST}:6379
//
// A reference has the form secretref:<provider>:<ref>. The env provider reads
// an environment variable; the file provider reads a file such as a mounted
// container secret.
package secret
