package normalize

import "strings"

// deliveryTimeTable is the closed free-text-to-minutes mapping from
// §6. It is intentionally exhaustive rather than extensible: a
// provider whose free text doesn't match one of these phrases reports
// an unknown delivery time rather than a guessed one.
var deliveryTimeTable = map[string]int{
	"instant":            10,
	"minutes":            10,
	"within 24 hours":    1440,
	"1 business day":     1440,
	"2 business days":    2880,
	"3 business days":    4320,
	"5 business days":    7200,
}

// DeliveryMinutesFromText resolves a provider's free-text delivery
// estimate to minutes using the closed table, case-insensitively. ok
// is false when the text isn't recognized, in which case the caller
// should treat delivery time as unknown rather than guessing.
func DeliveryMinutesFromText(text string) (minutes int, ok bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	minutes, ok = deliveryTimeTable[normalized]
	return minutes, ok
}
