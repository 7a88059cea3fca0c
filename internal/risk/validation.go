package risk

import (
	"regexp"
	"strings"
)

// symbolPattern admits uppercase alphanumeric symbols of 2-10 characters,
// optionally as a BASE/QUOTE pair. Everything symbols reach here for is
// string-interpolated SQL parameters, so the shape is enforced before any
// query runs.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}(/[A-Z0-9]{2,10})?$`)

// sqlKeywords are rejected as substrings even when the overall shape
// matches, so keyword-shaped tickers never reach a query.
var sqlKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "UNION",
	"WHERE", "EXEC", "NULL", "TRUE", "FALSE", "OR", "AND",
}

// isValidSymbol reports whether symbol is a well-formed instrument symbol.
func isValidSymbol(symbol string) bool {
	if !symbolPattern.MatchString(symbol) {
		return false
	}
	for _, kw := range sqlKeywords {
		if strings.Contains(symbol, kw) {
			return false
		}
	}
	return true
}
