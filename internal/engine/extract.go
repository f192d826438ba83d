package engine

import "strings"

// Indicator tags form a fixed vocabulary. New rules may be appended to the
// table without changing the Extract contract.
const (
	TagOTP          = "OTP"
	TagBankDetails  = "Bank Details"
	TagPhishingLink = "Phishing Link"
	TagUrgency      = "Threat / Urgency"
	TagLottery      = "Lottery Scam"
)

type extractRule struct {
	patterns  []string
	tag       string
	requested bool // true: requested-sensitive-data category, false: scam indicator
}

var extractRules = []extractRule{
	{patterns: []string{"otp", "one time password"}, tag: TagOTP, requested: true},
	{patterns: []string{"upi", "account number", "bank"}, tag: TagBankDetails, requested: true},
	{patterns: []string{"link", "click"}, tag: TagPhishingLink},
	{patterns: []string{"blocked", "suspended", "urgent", "hours"}, tag: TagUrgency},
	{patterns: []string{"won", "prize", "reward"}, tag: TagLottery},
}

// Extract runs the rule table against text and returns the matched scam
// indicators and requested-sensitive-data categories. Matching is
// case-insensitive substring search; no matches yield empty slices. Pure and
// deterministic, never fails.
func Extract(text string) (scamIndicators, requestedData []string) {
	lower := strings.ToLower(text)
	for _, rule := range extractRules {
		for _, p := range rule.patterns {
			if strings.Contains(lower, p) {
				if rule.requested {
					requestedData = append(requestedData, rule.tag)
				} else {
					scamIndicators = append(scamIndicators, rule.tag)
				}
				break
			}
		}
	}
	return scamIndicators, requestedData
}
