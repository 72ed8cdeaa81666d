package enums

// Currency is the ISO code used when creating gateway intents. The order
// engine is single-currency; the enum exists so the gateway contract is typed.
type Currency string

const (
	CurrencyUSD Currency = "USD"
)
