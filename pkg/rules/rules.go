// Package rules holds the static per-bank extraction rules.
//
// Each rule pairs a bank's alert sender address with a single extraction
// pattern. Capture group positions are bank-specific and deliberately not
// uniform: group 1 is always the amount, but the remaining groups differ per
// bank (see pkg/extract for the per-bank field mapping). Patterns compile
// with (?is) so matching is case-insensitive and spans line breaks.
package rules

import (
	"fmt"
	"regexp"
	"sort"
)

// Rule describes how to recognize and parse one bank's debit alerts.
type Rule struct {
	// Bank is the uppercase short code, e.g. "HDFC".
	Bank string

	// SenderAddress is the alert sender used in the mailbox search.
	SenderAddress string

	// Pattern extracts transaction fields. Group order is bank-specific.
	Pattern *regexp.Regexp

	// SingleMatch selects the first-occurrence strategy: the bank's alerts
	// carry exactly one structured block per message, so only the first
	// occurrence is parsed. All other banks use find-all.
	SingleMatch bool
}

// Registry is an immutable bank-to-rule mapping, built once at startup and
// passed explicitly to the extractor and the fetcher.
type Registry struct {
	rules map[string]Rule
}

// Default returns the registry of supported banks.
func Default() *Registry {
	return newRegistry(
		Rule{
			Bank:          "HDFC",
			SenderAddress: "alerts@hdfcbank.net",
			// Groups: 1=amount, 2=VPA, 3=party name, 4=date (dd-mm-yy)
			Pattern: regexp.MustCompile(`(?is)Rs\.\s?([\d,]+\.\d{2})\s?has been debited .*? to VPA (\S+)\s*(.*?)\s*on (\d{2}-\d{2}-\d{2})`),
		},
		Rule{
			Bank:          "ICICI",
			SenderAddress: "alerts@icicibank.com",
			// Groups: 1=amount, 2=VPA, 3=date (dd-mm-yy), 4=party name
			Pattern: regexp.MustCompile(`(?is)Rs\.([\d,]+\.\d{2}) debited from a/c.*?to (\S+).*?on (\d{2}-\d{2}-\d{2})\s+(.*?)\s+`),
		},
		Rule{
			Bank:          "SBI",
			SenderAddress: "cbsalerts.sbi@alerts.sbi.co.in",
			// Groups: 1=amount, 2=date (dd/mm/yy), 3=free-text reference info
			Pattern: regexp.MustCompile(`(?is)Debited\s+(?:INR|Rs\.?)\s*([\d,]+\.\d{2})\s+on\s+(\d{2}/\d{2}/\d{2}).*?(?:ref|Info)[:\s]*(.*)`),
		},
		Rule{
			Bank:          "AXIS",
			SenderAddress: "alerts@axisbank.com",
			// Groups: 1=amount, 2=date (dd-mm-yy), 3=time, 4=transaction info.
			// Axis alerts carry one structured block per message.
			Pattern:     regexp.MustCompile(`(?is)Amount Debited:\s*(?:INR|Rs\.?)\s*([\d,]+\.\d{2})\s*.*?Date & Time:\s*(\d{2}-\d{2}-\d{2})\s*,\s*(\d{2}:\d{2}:\d{2})\s*(?:IST)?\s*.*?Transaction Info:\s*([^\r\n]*)`),
			SingleMatch: true,
		},
		Rule{
			Bank:          "KOTAK",
			SenderAddress: "noreply@kotak.com",
			// Groups: 1=amount, 2=UPI reference, 3=party name, 4=date (dd-mm-yy)
			Pattern: regexp.MustCompile(`(?is)Rs\.([\d,]+\.\d{2}) has been debited.*?UPI-(\S+).*?to (.+?) on (\d{2}-\d{2}-\d{2})`),
		},
	)
}

func newRegistry(rules ...Rule) *Registry {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.Bank] = r
	}
	return &Registry{rules: m}
}

// Lookup returns the rule for a bank code. Unknown banks are a hard error;
// no fallback pattern is applied.
func (r *Registry) Lookup(bank string) (Rule, error) {
	rule, ok := r.rules[bank]
	if !ok {
		return Rule{}, fmt.Errorf("bank %q not recognized: no extraction rule defined", bank)
	}
	return rule, nil
}

// Banks returns the supported bank codes in sorted order.
func (r *Registry) Banks() []string {
	banks := make([]string, 0, len(r.rules))
	for bank := range r.rules {
		banks = append(banks, bank)
	}
	sort.Strings(banks)
	return banks
}
