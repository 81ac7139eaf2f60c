package purchase

// Pack is a fixed server-priced bundle of generation credits. Prices live
// here, not in client code and not in provider dashboards: the checkout flow
// always charges what this table says.
type Pack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

// QuickBuyPackID is the single pack sold through the embedded quick-buy flow.
const QuickBuyPackID = "quick10"

var packs = []Pack{
	{ID: "starter", Name: "Starter", Credits: 50, PriceCents: 499, Currency: "usd"},
	{ID: "creator", Name: "Creator", Credits: 200, PriceCents: 1499, Currency: "usd"},
	{ID: "studio", Name: "Studio", Credits: 500, PriceCents: 2999, Currency: "usd"},
	{ID: QuickBuyPackID, Name: "Quick 10", Credits: 10, PriceCents: 199, Currency: "usd"},
}

// Catalog returns the packs in display order.
func Catalog() []Pack {
	out := make([]Pack, len(packs))
	copy(out, packs)
	return out
}

// PackByID looks up a pack by its identifier.
func PackByID(id string) (Pack, bool) {
	for _, p := range packs {
		if p.ID == id {
			return p, true
		}
	}
	return Pack{}, false
}
