// Package sanitize strips untrusted page markup before it is
// interpolated into an LLM prompt. A page under automation is untrusted
// input; text embedded in it (alt attributes, hidden nodes, aria labels)
// can carry instructions aimed at the model rather than the user, so the
// chunked DOM serialization and element descriptions are run through a
// bluemonday policy before they leave this process.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// Policy name accepted by Strip and Config.SanitizePolicy.
const (
	PolicyStrict  = "strict"
	PolicyRelaxed = "relaxed"
	PolicyOff     = "off"
)

// Strip runs html through the named bluemonday policy and returns the
// sanitized result. An unrecognized policy name falls back to strict,
// since the caller asked for sanitization and a silent no-op on typo is
// worse than an over-aggressive strip.
func Strip(html string, policy string) string {
	switch policy {
	case PolicyOff:
		return html
	case PolicyRelaxed:
		return bluemonday.UGCPolicy().Sanitize(html)
	default:
		return bluemonday.StrictPolicy().Sanitize(html)
	}
}
