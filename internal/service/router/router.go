// Package router classifies Turkish messages into the closed intent set.
// The rules are ordered and deterministic on purpose: LLM classification
// drifted between Turkish phrasings and broke earlier versions, so the
// ordered-rule table IS the contract. Rule order encodes the observed
// disambiguations (e.g. "ilan" + "sil" beats a cancel keyword).
package router

import (
	"regexp"
	"strings"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// ilanSingular is the listing-word family for the delete rule. The plural
// forms belong to the view-my-listings rule and are deliberately absent.
var ilanSingular = []string{"ilan", "ilani", "ilanim", "ilanimi"}

var (
	// "fiyatı 27000 yap" / "fiyat 500 olsun" — an update command even
	// without an update trigger word.
	priceChangeRe = regexp.MustCompile(`fiyat(i|ini)?\s+\S+\s+(yap|olsun)`)

	// "araba*m* var" — possessive followed by "var"; together with a
	// selling verb this is a create signal.
	possessiveVarRe = regexp.MustCompile(`\p{L}+(um|im|üm|ım)\s+var`)

	// "Marka: Toyota, Fiyat: 500.000 TL" — structured product pairs are a
	// create signal on their own.
	productPairsRe = regexp.MustCompile(`\b(baslik|urun|marka|model|fiyat)\s*:`)
)

// Router is a pure keyword-priority classifier.
type Router struct {
	cancel     [][]string
	deletes    [][]string
	ownListing [][]string
	allListing [][]string
	updates    [][]string
	confirms   [][]string
	sells      [][]string
	buys       [][]string
}

// New builds a router from the configured trigger sets. Triggers are folded
// once here so per-message matching is diacritic-insensitive.
func New(cfg config.RouterConfig) *Router {
	return &Router{
		cancel:     foldPhrases(cfg.CancelKeywords),
		deletes:    foldPhrases(cfg.DeleteTriggers),
		ownListing: foldPhrases(cfg.OwnListingTriggers),
		allListing: foldPhrases(cfg.AllListingTriggers),
		updates:    foldPhrases(cfg.UpdateTriggers),
		confirms:   foldPhrases(cfg.ConfirmTriggers),
		sells:      foldPhrases(cfg.SellTriggers),
		buys:       foldPhrases(cfg.BuyTriggers),
	}
}

// Classify maps a message to an intent. It is a pure function of
// (normalized text, hasDraft): same inputs, same output, no clock, no I/O.
//
// Rules apply in strict order; the first match wins:
//
//  1. delete trigger + singular ilan token  → delete_listing
//  2. own-listing trigger                   → view_my_listings
//  3. all-listing trigger                   → search_product
//  4. update trigger or price-change regex  → update_listing
//  5. confirm trigger, only with a draft    → publish_listing
//  6. sell trigger, possessive+selling, or
//     structured product pairs              → create_listing
//  7. buy trigger                           → search_product
//  8. cancel keyword without any ilan token → cancel
//  9. otherwise                             → small_talk
func (r *Router) Classify(text string, hasDraft bool) domain.Intent {
	norm := domain.NormalizeText(text)
	folded := domain.FoldText(text)
	tokens := domain.Tokenize(folded)
	// The ilan-family check used by the cancel rule looks at the
	// merely-normalized tokens as well as the folded ones.
	normTokens := domain.Tokenize(norm)

	hasIlanToken := hasPrefixToken(tokens, "ilan") || hasPrefixToken(normTokens, "ilan")

	if matchAny(tokens, r.deletes) && containsAnyToken(tokens, ilanSingular) {
		return domain.IntentDeleteListing
	}
	if matchAny(tokens, r.ownListing) {
		return domain.IntentViewMyListings
	}
	if matchAny(tokens, r.allListing) {
		return domain.IntentSearchProduct
	}
	if matchAny(tokens, r.updates) || priceChangeRe.MatchString(folded) {
		return domain.IntentUpdateListing
	}
	if hasDraft && matchAny(tokens, r.confirms) {
		return domain.IntentPublishListing
	}
	if matchAny(tokens, r.sells) ||
		(possessiveVarRe.MatchString(norm) && hasPrefixToken(tokens, "sat")) ||
		productPairsRe.MatchString(folded) {
		return domain.IntentCreateListing
	}
	if matchAny(tokens, r.buys) {
		return domain.IntentSearchProduct
	}
	if matchAny(tokens, r.cancel) && !hasIlanToken {
		return domain.IntentCancel
	}
	return domain.IntentSmallTalk
}

// MatchesCancel reports whether the message is a bare cancel command. The
// controller consults this before routing: a cancel with no draft ends the
// session, a cancel during a draft cancels the draft instead.
func (r *Router) MatchesCancel(text string) bool {
	tokens := domain.Tokenize(domain.FoldText(text))
	return matchAny(tokens, r.cancel)
}

// foldPhrases folds each trigger and splits multi-word triggers into token
// sequences ("ilan ver" matches as two consecutive tokens).
func foldPhrases(triggers []string) [][]string {
	out := make([][]string, 0, len(triggers))
	for _, t := range triggers {
		tokens := domain.Tokenize(domain.FoldText(t))
		if len(tokens) > 0 {
			out = append(out, tokens)
		}
	}
	return out
}

// matchAny reports whether any trigger phrase occurs in tokens as a
// consecutive whole-token sequence.
func matchAny(tokens []string, phrases [][]string) bool {
	for _, phrase := range phrases {
		if containsPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(tokens) < len(phrase) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func containsAnyToken(tokens []string, wanted []string) bool {
	for _, t := range tokens {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

func hasPrefixToken(tokens []string, prefix string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}
