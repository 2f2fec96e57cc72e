// Package extract parses bank alert text into structured transactions.
//
// Two matching strategies exist. Banks whose alerts contain a single
// structured block (Axis) are parsed with a first-occurrence search; all
// other banks are parsed with find-all, so one email can yield several
// transactions. Field mapping is dispatched by bank code because the capture
// group order differs per bank.
package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/moneymap/moneymap/pkg/api"
	"github.com/moneymap/moneymap/pkg/rules"
)

// Sentinel counterparty values used when an alert format carries no payment
// address.
const (
	NoVPA    = "N/A"
	NoVPASBI = "N/A (SBI Format)"
)

// Extract applies a bank rule to extracted email text and returns the parsed
// transactions plus human-readable warnings for matches that had to be
// discarded. A text with no matches yields zero transactions and zero
// warnings: absence is not failure.
func Extract(text string, rule rules.Rule) ([]api.Transaction, []string) {
	if rule.SingleMatch {
		return extractSingle(text, rule)
	}
	return extractAll(text, rule)
}

// extractAll parses every non-overlapping pattern occurrence. A match with an
// unparseable amount or a missing date voids only that match; the remaining
// matches are still processed.
func extractAll(text string, rule rules.Rule) ([]api.Transaction, []string) {
	var (
		txns     []api.Transaction
		warnings []string
	)

	for _, groups := range rule.Pattern.FindAllStringSubmatch(text, -1) {
		txn, err := mapGroups(rule.Bank, groups)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s match %q: %v", rule.Bank, groups[0], err))
			continue
		}
		txns = append(txns, txn)
	}

	return txns, warnings
}

// extractSingle parses the first pattern occurrence only. Used for Axis,
// whose alerts contain exactly one structured block per message.
func extractSingle(text string, rule rules.Rule) ([]api.Transaction, []string) {
	groups := rule.Pattern.FindStringSubmatch(text)
	if groups == nil {
		return nil, nil
	}

	amount, err := parseAmount(groups[1])
	if err != nil {
		return nil, []string{fmt.Sprintf("skipping %s match %q: %v", rule.Bank, groups[0], err)}
	}

	date := groups[2]
	if date == "" {
		return nil, []string{fmt.Sprintf("skipping %s match %q: missing date", rule.Bank, groups[0])}
	}

	info := strings.TrimSpace(groups[4])
	vpa, party := splitUPIInfo(info)

	return []api.Transaction{{
		Date:      date,
		Amount:    amount,
		VPAID:     vpa,
		PartyName: party,
		Bank:      rule.Bank,
		Time:      groups[3],
	}}, nil
}

// mapGroups maps positional capture groups to transaction fields. The group
// order is bank-specific and must not be assumed uniform.
func mapGroups(bank string, groups []string) (api.Transaction, error) {
	amount, err := parseAmount(groups[1])
	if err != nil {
		return api.Transaction{}, err
	}

	txn := api.Transaction{Amount: amount, Bank: bank}

	switch bank {
	case "HDFC": // 2=VPA, 3=party, 4=date
		txn.VPAID = groups[2]
		txn.PartyName = normalizeName(groups[3])
		txn.Date = groups[4]
	case "ICICI": // 2=VPA, 3=date, 4=party
		txn.VPAID = groups[2]
		txn.Date = groups[3]
		txn.PartyName = normalizeName(groups[4])
	case "SBI": // 2=date, 3=free-text reference info
		txn.Date = groups[2]
		txn.VPAID, txn.PartyName = splitSBIInfo(groups[3])
	case "KOTAK": // 2=UPI reference (not a VPA), 3=party, 4=date
		txn.VPAID = NoVPA
		txn.PartyName = normalizeName(groups[3])
		txn.Date = groups[4]
	default:
		return api.Transaction{}, fmt.Errorf("no field mapping for bank %q", bank)
	}

	if txn.Date == "" {
		return api.Transaction{}, fmt.Errorf("missing date")
	}
	return txn, nil
}

// parseAmount converts an amount capture to a non-negative float. Thousands
// separators are stripped first; the sign is discarded because alerts encode
// debits with either convention and only magnitude matters downstream.
func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	return math.Abs(amount), nil
}

// normalizeName trims, lowercases and collapses internal whitespace in a
// directly-captured counterparty name. Applied only where the pattern
// captures a name group; decomposed fallback names stay raw.
func normalizeName(s string) string {
	name := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if name == "" {
		return NoVPA
	}
	return name
}

// splitUPIInfo decomposes a structured "UPI/..." transaction info string into
// a counterparty address and a display name. The last segment is the display
// name; the address is the first earlier segment containing "@". Info that
// doesn't look like a UPI reference is kept whole as the display name.
func splitUPIInfo(info string) (vpa, party string) {
	vpa = NoVPA
	party = info

	if !strings.HasPrefix(strings.ToLower(info), "upi") {
		return vpa, party
	}

	parts := strings.Split(info, "/")
	switch {
	case len(parts) >= 4:
		party = strings.TrimSpace(parts[len(parts)-1])
		for _, part := range parts[:len(parts)-1] {
			if strings.Contains(part, "@") {
				vpa = strings.TrimSpace(part)
				break
			}
		}
	case len(parts) > 1:
		party = strings.TrimSpace(parts[len(parts)-1])
	}

	return vpa, party
}

// splitSBIInfo extracts a counterparty from an SBI reference string, which
// may or may not embed a UPI path.
func splitSBIInfo(info string) (vpa, party string) {
	info = strings.TrimSpace(info)
	vpa = NoVPASBI
	party = info

	if strings.Contains(strings.ToLower(info), "upi/") {
		parts := strings.Split(info, "/")
		for _, part := range parts {
			if strings.Contains(part, "@") {
				vpa = strings.TrimSpace(part)
				break
			}
		}
		if len(parts) > 1 {
			party = strings.TrimSpace(parts[len(parts)-1])
		}
	}

	return vpa, party
}
