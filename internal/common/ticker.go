// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// Sentinel replies the resolver prompt asks the model to use when a company has no listing
const (
	TickerPrivate = "PRIVATE"
	TickerUnknown = "UNKNOWN"
)

var (
	plausibleSymbol = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,11}$`)
	exchangeNote    = regexp.MustCompile(`^\([^()]+\)[.,;]?$`)
)

const (
	symbolTrim   = "`\"'*$.,;:!?"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// yahooToEODHD maps Yahoo-style exchange suffixes to EODHD exchange codes.
var yahooToEODHD = map[string]string{
	"L":  "LSE",
	"HK": "HK",
	"SI": "SG",
	"NS": "NSE",
	"AX": "AU",
	"PA": "PA",
	"DE": "XETRA",
	"TO": "TO",
	"T":  "TSE",
}

// NormalizeSymbol trims a model reply down to a candidate symbol.
// Surrounding quotes, backticks, '$' and punctuation are stripped and the
// result is upper-cased. A one-word reply, or "SYMBOL (EXCHANGE)", yields that word.
// In longer prose only tokens already written as symbols count: upper-case with a
// letter, and at least two characters unless marked as `X`, **X** or $X. Prose with
// no such token, or with two different ones, yields "".
func NormalizeSymbol(reply string) string {
	s := strings.Trim(strings.TrimSpace(reply), "`\"' ")
	fields := strings.Fields(s)
	switch {
	case len(fields) == 0:
		return ""
	case len(fields) == 1, len(fields) == 2 && exchangeNote.MatchString(fields[1]):
		return strings.ToUpper(strings.Trim(fields[0], symbolTrim))
	}

	found := ""
	for _, field := range fields {
		if strings.HasSuffix(field, ":") {
			continue // label such as "NYSE:"
		}
		marked := strings.ContainsAny(field, "`*$")
		token := strings.Trim(field, symbolTrim+"()")
		if !plausibleSymbol.MatchString(token) || !strings.ContainsAny(token, upperLetters) {
			continue
		}
		if !marked && len(token) < 2 {
			continue
		}
		if found != "" && found != token {
			return ""
		}
		found = token
	}
	return found
}

// IsPlausibleSymbol reports whether s looks like a listed symbol
func IsPlausibleSymbol(s string) bool {
	return plausibleSymbol.MatchString(s)
}

// IsNoListingReply reports whether the normalized reply is one of the no-listing sentinels
func IsNoListingReply(s string) bool {
	return s == TickerPrivate || s == TickerUnknown
}

// SuffixVariants returns the exchange-qualified candidates for a bare symbol.
// Symbols that already carry a suffix produce no variants.
func SuffixVariants(symbol string, suffixes []string) []string {
	if symbol == "" || strings.Contains(symbol, ".") {
		return nil
	}
	variants := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		if suffix == "" {
			continue
		}
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		variants = append(variants, symbol+strings.ToUpper(suffix))
	}
	return variants
}

// EODHDSymbol converts a Yahoo-style symbol to EODHD CODE.EXCHANGE format.
// Bare symbols are treated as US listings; unknown suffixes pass through unchanged.
//
//	"AAPL"    -> "AAPL.US"
//	"VOD.L"   -> "VOD.LSE"
//	"BHP.AX"  -> "BHP.AU"
//	"BRK-B"   -> "BRK-B.US"
func EODHDSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ""
	}
	idx := strings.LastIndex(symbol, ".")
	if idx < 0 || idx == len(symbol)-1 {
		return strings.TrimSuffix(symbol, ".") + ".US"
	}
	if exchange, ok := yahooToEODHD[symbol[idx+1:]]; ok {
		return symbol[:idx] + "." + exchange
	}
	return symbol
}
