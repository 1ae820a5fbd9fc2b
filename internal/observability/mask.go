package observability

import "regexp"

var (
	reBearer = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._-]+)`)
	reAPIKey = regexp.MustCompile(`(?i)(api[_-]?key["']?\s*[=:]\s*["']?)([^\s"',;]+)`)
	reGroq   = regexp.MustCompile(`\bgsk_[A-Za-z0-9]+`)
	reOpenAI = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}`)
)

// Mask hides credentials that upstream error bodies tend to echo back.
func Mask(s string) string {
	out := reBearer.ReplaceAllString(s, "$1***")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	out = reGroq.ReplaceAllString(out, "gsk_***")
	out = reOpenAI.ReplaceAllString(out, "sk-***")
	return out
}
