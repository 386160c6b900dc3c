package funnel

// Verdict is the results screen's one-line reading of a final percentage.
type Verdict struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Verdict levels, best to worst.
const (
	VerdictPlenty    = "plenty"
	VerdictPromising = "promising"
	VerdictNeedle    = "needle"
	VerdictMove      = "move"
)

// VerdictFor buckets a percentage at 5, 1 and 0.1.
func VerdictFor(percentage float64) Verdict {
	switch {
	case percentage >= 5:
		return Verdict{VerdictPlenty, "You have plenty of fish in the sea! Maybe stop overthinking it?"}
	case percentage >= 1:
		return Verdict{VerdictPromising, "Not bad! Love might be just a few coffee dates away."}
	case percentage >= 0.1:
		return Verdict{VerdictNeedle, "Oof… It's giving 'needle in a haystack.' Maybe it's time to rethink one of your filters?"}
	}
	return Verdict{VerdictMove, "Uh… have you considered moving?"}
}
