package schema

import "strings"

// NormalizeSymbol upper-cases a venue symbol and ensures the "t" prefix the
// venue uses for trading pairs (tBTCUSD style).
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return ""
	}
	if strings.HasPrefix(symbol, "t") && len(symbol) > 1 {
		return "t" + strings.ToUpper(symbol[1:])
	}
	return "t" + strings.ToUpper(symbol)
}

// SymbolLegs splits a trading symbol into its asset and currency legs.
// Symbols either separate legs with ':' or concatenate two three-letter
// codes. The empty legs are returned when the symbol fits neither form.
func SymbolLegs(symbol string) (base, quote string) {
	pair := strings.TrimPrefix(strings.TrimSpace(symbol), "t")
	if idx := strings.IndexByte(pair, ':'); idx >= 0 {
		return pair[:idx], pair[idx+1:]
	}
	if len(pair) == 6 {
		return pair[:3], pair[3:]
	}
	return "", ""
}

// WalletKey derives the venue calculation key for a wallet under the given
// account mode, e.g. wallet_margin_BTC.
func WalletKey(mode AccountType, currency string) string {
	return "wallet_" + string(mode) + "_" + strings.ToUpper(strings.TrimSpace(currency))
}

// CalculationKeys lists the asset-leg and currency-leg wallet keys for a
// symbol under the given account mode, in that order.
func CalculationKeys(mode AccountType, symbol string) []string {
	base, quote := SymbolLegs(symbol)
	if base == "" || quote == "" {
		return nil
	}
	return []string{WalletKey(mode, base), WalletKey(mode, quote)}
}
