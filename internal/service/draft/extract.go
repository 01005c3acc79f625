package draft

import (
	"regexp"
	"strings"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// ExtractAttributes pulls listing attributes out of one message. Two input
// shapes are handled:
//
//   - structured "Anahtar: değer" pairs separated by commas or newlines
//     ("Marka: Toyota, Model: Corolla, Fiyat: 500.000 TL")
//   - loose prose ("iphone 13 satıyorum 25 bin tl"), where the price is
//     pulled by CleanPrice and the leading product words become the title
//
// Deeper extraction (descriptions, haggling, multi-item messages) belongs
// to the listing agent; this parser only has to make drafts usable when the
// agent is skipped.
func ExtractAttributes(text string) domain.ListingData {
	var out domain.ListingData

	pairs := splitPairs(text)
	if len(pairs) > 0 {
		var marka, model string
		for _, p := range pairs {
			key := domain.FoldText(p[0])
			val := strings.TrimSpace(p[1])
			switch key {
			case "baslik", "urun":
				out.Title = val
			case "marka":
				marka = val
			case "model":
				model = val
			case "fiyat":
				if n, ok := CleanPrice(val); ok {
					out.Price = n
				}
			case "durum":
				out.Condition = NormalizeCondition(val)
			case "kategori":
				out.Category = val
			case "aciklama":
				out.Description = val
			case "konum", "sehir", "il":
				out.Location = val
			case "stok", "adet":
				if n, ok := CleanPrice(val); ok && n > 0 {
					out.Stock = int(n)
				}
			default:
				if out.Extra == nil {
					out.Extra = make(map[string]string)
				}
				out.Extra[key] = val
			}
		}
		if out.Title == "" && (marka != "" || model != "") {
			out.Title = strings.TrimSpace(marka + " " + model)
		}
		return out
	}

	// Loose prose: explicit price command first, then a marked amount,
	// then the product words. A price command names no product, so it
	// leaves the title empty and Merge keeps the earlier one.
	m := priceCommandRe.FindStringSubmatch(domain.FoldText(text))
	if m != nil {
		if n, ok := CleanPrice(m[2]); ok {
			out.Price = n
		}
	} else if n, ok := extractInlinePrice(text); ok {
		out.Price = n
	}
	if cond := extractInlineCondition(text); cond != "" {
		out.Condition = cond
	}
	if m == nil {
		out.Title = extractTitle(text)
	}
	return out
}

// priceCommandRe matches "fiyatı 27000 yap" / "fiyat 25 bin olsun".
var priceCommandRe = regexp.MustCompile(`fiyat(i|ini)?\s+(.+?)\s+(yap|olsun)`)

// pairRe matches one "Anahtar: değer" segment.
var pairRe = regexp.MustCompile(`^\s*([\p{L} ]+?)\s*:\s*(.+)$`)

func splitPairs(text string) [][2]string {
	var out [][2]string
	for _, seg := range regexp.MustCompile(`[,\n;]`).Split(text, -1) {
		m := pairRe.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		out = append(out, [2]string{m[1], m[2]})
	}
	return out
}

// inlinePriceRe finds an amount with an explicit price marker: a currency
// suffix or bin/milyon multiplier. A bare number ("iphone 13") is not a price.
var inlinePriceRe = regexp.MustCompile(`\d+(?:[.,]\d+)*\s*(?:bin|milyon|tl|lira|₺)|(?:bin|milyon)\s*(?:tl|lira)?`)

func extractInlinePrice(text string) (int64, bool) {
	folded := domain.FoldText(text)
	m := inlinePriceRe.FindString(folded)
	if m == "" {
		return 0, false
	}
	// Widen to the left so "25 bin tl" keeps its leading number.
	idx := strings.Index(folded, m)
	start := idx
	for start > 0 {
		prev := strings.TrimRight(folded[:start], " ")
		tokens := strings.Fields(prev)
		if len(tokens) == 0 {
			break
		}
		last := tokens[len(tokens)-1]
		if numberRe.MatchString(last) || spelledTens[last] != 0 || spelledUnits[last] != 0 || last == "yuz" {
			start = strings.LastIndex(folded[:start], last)
			continue
		}
		break
	}
	return CleanPrice(folded[start : idx+len(m)])
}

func extractInlineCondition(text string) domain.Condition {
	folded := domain.FoldText(text)
	switch {
	case strings.Contains(folded, "yenilenmis"):
		return domain.ConditionRefurbished
	case strings.Contains(folded, "sifir") || strings.Contains(folded, "yeni"):
		return domain.ConditionNew
	case strings.Contains(folded, "ikinci el") || strings.Contains(folded, "kullanilmis") || strings.Contains(folded, "2 el"):
		return domain.ConditionUsed
	}
	return ""
}

// sellWords are dropped from loose prose before taking the title.
var sellWords = map[string]struct{}{
	"satiyorum": {}, "satmak": {}, "satayim": {}, "istiyorum": {}, "ilan": {},
	"ver": {}, "vermek": {}, "tl": {}, "lira": {}, "bin": {}, "milyon": {},
	"sifir": {}, "yeni": {}, "ikinci": {}, "el": {}, "kullanilmis": {}, "yenilenmis": {},
}

func extractTitle(text string) string {
	// Keep the user's casing for the title; fold only for filtering.
	orig := domain.Tokenize(domain.NormalizeText(text))
	folded := domain.Tokenize(domain.FoldText(text))

	var kept []string
	for i, tok := range folded {
		if _, skip := sellWords[tok]; skip {
			continue
		}
		if numberRe.MatchString(tok) && i > 0 {
			// A trailing number is usually the price; a number right after
			// a word is a model ("iphone 13").
			if i+1 >= len(folded) || folded[i+1] == "tl" || folded[i+1] == "bin" || folded[i+1] == "milyon" {
				continue
			}
		}
		kept = append(kept, orig[i])
		if len(kept) == 4 {
			break
		}
	}
	return strings.Join(kept, " ")
}

// NormalizeCondition maps free-text condition words onto the closed set.
// Unrecognized input defaults to used — the safe assumption for a
// second-hand marketplace.
func NormalizeCondition(raw string) domain.Condition {
	folded := domain.FoldText(raw)
	switch {
	case folded == "":
		return ""
	// Already-canonical values pass through; merge re-normalizes drafts
	// every turn, so this must be idempotent.
	case folded == "new":
		return domain.ConditionNew
	case folded == "used":
		return domain.ConditionUsed
	case folded == "refurbished":
		return domain.ConditionRefurbished
	case strings.Contains(folded, "yenilenmis"):
		return domain.ConditionRefurbished
	case strings.Contains(folded, "sifir"), strings.Contains(folded, "yeni"):
		return domain.ConditionNew
	default:
		return domain.ConditionUsed
	}
}
