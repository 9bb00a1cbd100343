package config

import "time"

// RevocationConfig controls the token revocation store consulted by the
// authentication guard.  Prefix namespaces the Redis keys.  Timeout bounds
// each store round trip.  FailOpen decides what happens when the store is
// unreachable during a read: false (the default) rejects the request
// because a revoked token must not be admitted during an outage; true
// admits tokens that already passed signature and expiry checks, trading
// revocation latency for availability.  Writes (logout) always fail closed
// regardless of this flag.
type RevocationConfig struct {
	Prefix   string
	Timeout  time.Duration
	FailOpen bool
}

// LoadRevocationConfig reads environment variables to build a
// RevocationConfig.  Defaults are used when variables are not set.
func LoadRevocationConfig() RevocationConfig {
	return RevocationConfig{
		Prefix:   getenv("REVOKED_PREFIX", "revoked"),
		Timeout:  parseDur(getenv("REVOKED_TIMEOUT", "2s")),
		FailOpen: getenv("REVOKED_FAIL_OPEN", "false") == "true",
	}
}
