package dice

// History is a bounded ring of recent roll results, newest first. A sheet
// session keeps one per character so players can review their last rolls.
//
// History is not safe for concurrent use.
type History struct {
	results []RollResult
	limit   int
}

// NewHistory creates a History that retains at most limit results.
//
// Precondition: limit >= 1.
func NewHistory(limit int) *History {
	if limit < 1 {
		panic("dice: NewHistory precondition violated: limit must be >= 1")
	}
	return &History{limit: limit}
}

// Record appends a result, evicting the oldest when the ring is full.
func (h *History) Record(r RollResult) {
	h.results = append(h.results, r)
	if len(h.results) > h.limit {
		h.results = h.results[1:]
	}
}

// Recent returns up to n results, newest first.
//
// Postcondition: len(return) == min(n, recorded count).
func (h *History) Recent(n int) []RollResult {
	if n > len(h.results) {
		n = len(h.results)
	}
	out := make([]RollResult, 0, n)
	for i := len(h.results) - 1; i >= len(h.results)-n; i-- {
		out = append(out, h.results[i])
	}
	return out
}

// Len reports how many results are currently retained.
func (h *History) Len() int {
	return len(h.results)
}

// Clear discards all retained results.
func (h *History) Clear() {
	h.results = nil
}
