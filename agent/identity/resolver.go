package identity

import (
	"regexp"
	"strings"

	contractx "github.com/harborins/concierge/agent/contract"
)

// customerIDPattern matches the customer identifiers used across the
// policy systems, e.g. CUST-001.
var customerIDPattern = regexp.MustCompile(`\bCUST-[0-9]{3,12}\b`)

// Resolve picks the customer identifier for one run. A non-empty session
// identifier always wins over a parsed one, regardless of how well-formed
// the parsed value looks; with neither present the identity has source
// none, which downstream components treat as "insufficient information"
// rather than an error. Pure function, no network calls.
func Resolve(sessionIdentifier, parsedIdentifier string) contractx.CustomerIdentity {
	if v := strings.TrimSpace(sessionIdentifier); v != "" {
		return contractx.CustomerIdentity{Value: v, Source: contractx.IdentityFromSession}
	}
	if v := strings.TrimSpace(parsedIdentifier); v != "" {
		return contractx.CustomerIdentity{Value: v, Source: contractx.IdentityFromParsed}
	}
	return contractx.CustomerIdentity{Source: contractx.IdentityNone}
}

// ParseIdentifier extracts a customer identifier from free text, or ""
// when none is present. Deterministic; used as the parsed-identifier
// input to Resolve when the classifier extracted no customer_id entity.
func ParseIdentifier(text string) string {
	return customerIDPattern.FindString(strings.ToUpper(text))
}
