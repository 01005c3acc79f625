package draft

import (
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// categorySpec pairs a canonical category with the folded keywords that
// select it. Strong keywords decide alone; weak ones (brand names mostly)
// only break a tie when nothing strong matched.
type categorySpec struct {
	label  string
	typ    domain.ListingType
	strong []string
	weak   []string
}

// Order matters: the first spec with a strong match wins, so the more
// specific categories sit above the catch-alls.
var categorySpecs = []categorySpec{
	{
		label:  "Otomotiv",
		typ:    domain.ListingTypeVehicle,
		strong: []string{"araba", "otomobil", "arac", "vasita", "kamyonet", "kamyon", "motosiklet", "motorsiklet", "scooter", "suv", "pickup", "tekne"},
		weak:   []string{"bmw", "mercedes", "audi", "volkswagen", "renault", "fiat", "ford", "toyota", "honda", "hyundai", "kia", "peugeot", "corolla", "passat"},
	},
	{
		label:  "Emlak",
		typ:    domain.ListingTypeProperty,
		strong: []string{"daire", "ev", "konut", "villa", "arsa", "tarla", "dukkan", "ofis", "residans", "mustakil"},
		weak:   []string{"kiralik", "satilik", "esyali"},
	},
	{
		label:  "Elektronik",
		typ:    domain.ListingTypeElectronics,
		strong: []string{"telefon", "laptop", "bilgisayar", "tablet", "televizyon", "kulaklik", "konsol", "kamera", "monitor", "yazici"},
		weak:   []string{"iphone", "samsung", "xiaomi", "huawei", "lenovo", "asus", "apple", "playstation", "xbox", "ipad", "macbook"},
	},
	{
		label:  "Moda & Aksesuar",
		typ:    domain.ListingTypeFashion,
		strong: []string{"elbise", "ayakkabi", "canta", "mont", "ceket", "pantolon", "gomlek", "etek", "takim", "saat", "parfum", "kolye"},
		weak:   []string{"zara", "nike", "adidas", "lacoste", "gucci", "mango"},
	},
}

const defaultCategory = "Diğer"

// ClassifyCategory infers a category label and its listing type from free
// text. Deterministic: keyword tables, no model call. Unmatched text lands
// in the general bucket.
func ClassifyCategory(text string) (string, domain.ListingType) {
	tokens := domain.Tokenize(domain.FoldText(text))
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	for _, spec := range categorySpecs {
		for _, kw := range spec.strong {
			if _, ok := set[kw]; ok {
				return spec.label, spec.typ
			}
		}
	}
	for _, spec := range categorySpecs {
		for _, kw := range spec.weak {
			if _, ok := set[kw]; ok {
				return spec.label, spec.typ
			}
		}
	}
	return defaultCategory, domain.ListingTypeGeneral
}

// TypeForCategory maps a category label (possibly user-supplied) to the
// metadata type discriminator.
func TypeForCategory(category string) domain.ListingType {
	folded := domain.FoldText(category)
	for _, spec := range categorySpecs {
		if domain.FoldText(spec.label) == folded {
			return spec.typ
		}
	}
	switch folded {
	case "elektronik":
		return domain.ListingTypeElectronics
	case "otomotiv", "vasita":
		return domain.ListingTypeVehicle
	case "emlak":
		return domain.ListingTypeProperty
	case "moda", "moda & aksesuar", "giyim":
		return domain.ListingTypeFashion
	}
	return domain.ListingTypeGeneral
}
