package setups

// maxReadinessEntries bounds the readiness diagnostic so a quiet tape
// cannot flood the output
const maxReadinessEntries = 10

// Readiness collects per-archetype skip reasons into the bounded
// "no signal" diagnostic: which archetypes were attempted and why each
// stood down
func Readiness(skips []Skip) []Skip {
	if len(skips) <= maxReadinessEntries {
		return skips
	}
	return skips[:maxReadinessEntries]
}
