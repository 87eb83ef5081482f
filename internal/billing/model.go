package billing

import "github.com/shopspring/decimal"

// Pack is a purchasable credit bundle. The payment provider only sends
// the pack ID; credit amounts are resolved here so a tampered webhook
// cannot name its own price.
type Pack struct {
	ID      string
	Credits decimal.Decimal
}

var packs = map[string]Pack{
	"starter": {ID: "starter", Credits: decimal.RequireFromString("50")},
	"growth":  {ID: "growth", Credits: decimal.RequireFromString("200")},
	"scale":   {ID: "scale", Credits: decimal.RequireFromString("1000")},
}

// PackByID resolves a credit pack and whether it exists.
func PackByID(id string) (Pack, bool) {
	p, ok := packs[id]
	return p, ok
}

// Event types the webhook understands. Anything else is acknowledged
// and ignored so the provider stops retrying.
const EventCreditPackPurchased = "credit_pack.purchased"

// Event is the payment provider's webhook payload.
type Event struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	PackID string `json:"pack_id"`
}
