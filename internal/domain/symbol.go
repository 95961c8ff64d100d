package domain

import "strings"

// NormalizeCNSymbol qualifies a bare A-share code with its exchange suffix:
// codes starting with 6 trade in Shanghai (.SH), 0 and 3 in Shenzhen (.SZ),
// 8 and 4 on the Beijing exchange (.BJ). Already-qualified symbols are
// upper-cased and returned unchanged.
func NormalizeCNSymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.Contains(code, ".") {
		return code
	}
	switch code[0] {
	case '6':
		return code + ".SH"
	case '0', '3':
		return code + ".SZ"
	case '8', '4':
		return code + ".BJ"
	}
	return code
}

// SymbolCode strips the exchange suffix from a qualified symbol.
func SymbolCode(symbol string) string {
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}
