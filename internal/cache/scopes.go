package cache

// Cached values are keyed "<scope>:<key>" so a write can invalidate every
// entry derived from the data it touched without knowing the exact keys.
const (
	ScopeMembers  = "members"
	ScopeRates    = "rates"
	ScopePayments = "payments"
)

// Key builds a scoped cache key.
func Key(scope, key string) string {
	return scope + ":" + key
}

// Invalidator is implemented by caches that support scope-wide deletion.
type Invalidator interface {
	DeletePrefix(prefix string) int
}

// InvalidateScope clears every entry in the given scope across all caches.
// Returns the total number of entries removed.
func InvalidateScope(scope string, caches ...Invalidator) int {
	total := 0
	for _, c := range caches {
		total += c.DeletePrefix(scope + ":")
	}
	return total
}
