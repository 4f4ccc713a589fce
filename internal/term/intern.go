package term

import "sync"

// stringInterner deduplicates atom strings so that repeated occurrences of
// the same identifier (an atom is reused on every event, implication, and
// concept key built from it) share one backing string.
type stringInterner struct {
	mu      sync.RWMutex
	strings map[string]string // canonical string -> itself
}

// atomInterner is the process-wide pool used by Intern. A single NAR
// instance may construct millions of terms over its lifetime; interning
// keeps atom storage bounded by the vocabulary size, not the event count.
var atomInterner = newStringInterner()

func newStringInterner() *stringInterner {
	return &stringInterner{
		strings: make(map[string]string, 256),
	}
}

func (si *stringInterner) intern(s string) string {
	if s == "" {
		return ""
	}

	si.mu.RLock()
	if canonical, exists := si.strings[s]; exists {
		si.mu.RUnlock()
		return canonical
	}
	si.mu.RUnlock()

	si.mu.Lock()
	defer si.mu.Unlock()

	if canonical, exists := si.strings[s]; exists {
		return canonical
	}
	si.strings[s] = s
	return s
}

func (si *stringInterner) size() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.strings)
}

// Intern returns the canonical instance of an atom string, interning it if
// this is the first occurrence seen by the process.
func Intern(s string) string {
	return atomInterner.intern(s)
}

// InternedCount returns the number of distinct atom strings interned so
// far. Exposed for diagnostics (stats/`*concepts`).
func InternedCount() int {
	return atomInterner.size()
}
