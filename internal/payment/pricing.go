package payment

import "github.com/pzklab/dietetics-api/internal/model"

// Module and bundle prices in grosze.  The bundle is cheaper than the
// sum of its parts.
const (
	priceModuleGrosz = 14900 // 149.00 PLN per module
	priceBundleGrosz = 39900 // 399.00 PLN for all three
)

// PriceGrosz returns the price of a purchase item.  The boolean is
// false for unknown items.
func PriceGrosz(item string) (int64, bool) {
	switch item {
	case model.ItemModule1, model.ItemModule2, model.ItemModule3:
		return priceModuleGrosz, true
	case model.ItemAll:
		return priceBundleGrosz, true
	}
	return 0, false
}

// Description returns the human-readable order description shown on the
// gateway's hosted form.
func Description(item string) string {
	switch item {
	case model.ItemAll:
		return "PZK - pelny program (moduly 1-3)"
	case model.ItemModule1:
		return "PZK - modul 1"
	case model.ItemModule2:
		return "PZK - modul 2"
	case model.ItemModule3:
		return "PZK - modul 3"
	}
	return "PZK"
}
