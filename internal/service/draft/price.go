package draft

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// CleanPrice normalizes Turkish price text into an integer TRY amount:
//
//	"25 bin"        → 25000
//	"2.5M"          → 2500000
//	"1,5 milyon"    → 1500000
//	"otuz beş bin"  → 35000
//	"54.999 TL"     → 54999
//
// Returns 0 and false when no usable amount is found. A decimal separator
// is only honored when a multiplier (bin/milyon/M/K) follows; otherwise
// separators are treated as Turkish thousands grouping.
func CleanPrice(text string) (int64, bool) {
	folded := domain.FoldText(text)
	if folded == "" {
		return 0, false
	}

	multiplier := int64(1)
	switch {
	case strings.Contains(folded, "milyon"):
		multiplier = 1_000_000
		folded = strings.ReplaceAll(folded, "milyon", " ")
	case strings.Contains(folded, "bin"):
		multiplier = 1_000
		folded = strings.ReplaceAll(folded, "bin", " ")
	case regexp.MustCompile(`\d\s*m\b`).MatchString(folded):
		multiplier = 1_000_000
		folded = regexp.MustCompile(`m\b`).ReplaceAllString(folded, " ")
	case regexp.MustCompile(`\d\s*k\b`).MatchString(folded):
		multiplier = 1_000
		folded = regexp.MustCompile(`k\b`).ReplaceAllString(folded, " ")
	}

	if n, ok := parseDigits(folded, multiplier); ok {
		return n, true
	}

	// No digits at all: try spelled-out Turkish numbers ("otuz bes").
	if n, ok := parseSpelled(folded); ok {
		return n * multiplier, true
	}

	return 0, false
}

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

func parseDigits(folded string, multiplier int64) (int64, bool) {
	match := numberRe.FindString(folded)
	if match == "" {
		return 0, false
	}

	if multiplier > 1 {
		// "2.5" before a multiplier is a decimal, not grouping.
		normalized := strings.ReplaceAll(match, ",", ".")
		if strings.Count(normalized, ".") == 1 {
			f, err := strconv.ParseFloat(normalized, 64)
			if err != nil {
				return 0, false
			}
			return int64(f * float64(multiplier)), true
		}
	}

	// Plain amount: strip grouping separators ("54.999" / "54,999").
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(match)
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * multiplier, true
}

var spelledUnits = map[string]int64{
	"bir": 1, "iki": 2, "uc": 3, "dort": 4, "bes": 5,
	"alti": 6, "yedi": 7, "sekiz": 8, "dokuz": 9,
}

var spelledTens = map[string]int64{
	"on": 10, "yirmi": 20, "otuz": 30, "kirk": 40, "elli": 50,
	"altmis": 60, "yetmis": 70, "seksen": 80, "doksan": 90,
}

// parseSpelled sums a sequence like "otuz bes" (35) or "yuz elli" (150).
func parseSpelled(folded string) (int64, bool) {
	var total int64
	found := false
	for _, tok := range strings.Fields(folded) {
		switch {
		case tok == "yuz":
			if total == 0 {
				total = 100
			} else {
				total *= 100
			}
			found = true
		case spelledTens[tok] != 0:
			total += spelledTens[tok]
			found = true
		case spelledUnits[tok] != 0:
			total += spelledUnits[tok]
			found = true
		}
	}
	if !found || total == 0 {
		return 0, false
	}
	return total, true
}
