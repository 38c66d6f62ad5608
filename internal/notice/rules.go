package notice

import (
	"regexp"
	"strings"
)

// ClassificationRule maps any-of trigger keywords to an intent and summary.
// A rule's priority is its position in the intent table.
type ClassificationRule struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Intent   string   `json:"intent" yaml:"intent"`
	Summary  string   `json:"summary" yaml:"summary"`
}

// RiskRule maps any-of trigger keywords to a risk level.
type RiskRule struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Risk     Risk     `json:"risk" yaml:"risk"`
}

// intentRules is evaluated top to bottom; the first match wins.
// New categories go below existing ones unless a precedence change is intended.
var intentRules = []ClassificationRule{
	{
		Name:     "rent_recovery",
		Keywords: []string{"rent", "lease", "sublease", "tenant", "subtenant", "tenancy", "landlord"},
		Intent:   "Recovery of unpaid rent",
		Summary:  "The notice demands payment of pending rent amounts.",
	},
	{
		Name:     "loan_repayment",
		Keywords: []string{"loan", "emi", "bank", "borrower", "instalment", "installment"},
		Intent:   "Loan repayment demand",
		Summary:  "The notice demands repayment of a loan or dues.",
	},
	{
		Name:     "dues_recovery",
		Keywords: []string{"defaulter", "recovery", "outstanding dues", "outstanding amount", "arrears"},
		Intent:   "Recovery of outstanding dues",
		Summary:  "The notice demands clearance of outstanding dues and warns of recovery action.",
	},
	{
		Name:     "vehicle_fine",
		Keywords: []string{"challan", "e-challan", "traffic", "vehicle", "speeding", "registration number"},
		Intent:   "Traffic or vehicle fine",
		Summary:  "The notice asks you to pay a fine for a traffic or vehicle violation.",
	},
	{
		Name:     "termination",
		Keywords: []string{"termination", "terminate"},
		Intent:   "Termination of agreement",
		Summary:  "The notice informs termination of an existing agreement.",
	},
	{
		Name:     "eviction",
		Keywords: []string{"eviction", "evict", "vacate"},
		Intent:   "Eviction notice",
		Summary:  "The notice warns about eviction from the premises.",
	},
	{
		Name:     "breach_of_contract",
		Keywords: []string{"breach"},
		Intent:   "Breach of contract",
		Summary:  "The notice alleges breach of contractual terms.",
	},
}

// riskRules is evaluated top to bottom, independently of intentRules.
var riskRules = []RiskRule{
	{
		Name:     "escalation",
		Keywords: []string{"legal action", "court", "suit", "lawsuit", "countersuit", "liability", "proceedings", "penalty", "prosecution"},
		Risk:     RiskHigh,
	},
	{
		Name:     "compliance_failure",
		Keywords: []string{"failure to comply", "fail to comply", "non-compliance", "shall be liable"},
		Risk:     RiskMedium,
	},
}

// DefaultRisk applies when no risk rule matches.
const DefaultRisk = RiskLow

type Classification struct {
	Intent  string `json:"intent"`
	Summary string `json:"summary"`
	Risk    Risk   `json:"risk"`
	// Rule names which matched; empty when the default applied.
	IntentRule string `json:"intent_rule,omitempty"`
	RiskRule   string `json:"risk_rule,omitempty"`
}

var (
	intentMatchers = compileMatchers(len(intentRules), func(i int) []string { return intentRules[i].Keywords })
	riskMatchers   = compileMatchers(len(riskRules), func(i int) []string { return riskRules[i].Keywords })
)

// IntentRules returns a copy of the intent table in evaluation order.
func IntentRules() []ClassificationRule {
	out := make([]ClassificationRule, len(intentRules))
	for i, r := range intentRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// RiskRules returns a copy of the risk table in evaluation order.
func RiskRules() []RiskRule {
	out := make([]RiskRule, len(riskRules))
	for i, r := range riskRules {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// Classify runs the ordered rule tables over text. It never fails.
func Classify(text string) Classification {
	c := Classification{Intent: IntentUnknown, Summary: GenericSummary, Risk: DefaultRisk}
	if i := firstMatch(intentMatchers, text); i >= 0 {
		r := intentRules[i]
		c.Intent, c.Summary, c.IntentRule = r.Intent, r.Summary, r.Name
	}
	if i := firstMatch(riskMatchers, text); i >= 0 {
		r := riskRules[i]
		c.Risk, c.RiskRule = r.Risk, r.Name
	}
	return c
}

// Fallback assembles a complete result from the deterministic extractors.
func Fallback(text string) AnalysisResult {
	c := Classify(text)
	return AnalysisResult{
		Summary:  c.Summary,
		Intent:   c.Intent,
		Deadline: ExtractDeadline(text),
		Risk:     c.Risk,
	}
}

func firstMatch(matchers []*regexp.Regexp, text string) int {
	for i, m := range matchers {
		if m.MatchString(text) {
			return i
		}
	}
	return -1
}

// Keywords match case-insensitively as substrings that begin a word, so "rent"
// hits "rental" but not "current", and "lease" skips "please". Compound forms
// such as "lawsuit" and "sublease" are listed as keywords of their own.
func compileMatchers(n int, keywords func(int) []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, n)
	for i := 0; i < n; i++ {
		alts := make([]string, 0, len(keywords(i)))
		for _, kw := range keywords(i) {
			words := strings.Fields(strings.ToLower(kw))
			for j := range words {
				words[j] = regexp.QuoteMeta(words[j])
			}
			alts = append(alts, strings.Join(words, `\s+`))
		}
		out[i] = regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)`)
	}
	return out
}
