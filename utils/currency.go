package utils

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyLocales = map[string]language.Tag{
	"EUR": language.MustParse("es-ES"),
	"BRL": language.BrazilianPortuguese,
	"USD": language.AmericanEnglish,
	"GBP": language.BritishEnglish,
}

// FormatCurrency formats an amount in the restaurant's currency, e.g.
// FormatCurrency(20, "EUR"). Unknown codes fall back to EUR.
func FormatCurrency(amount float64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.EUR
	}
	tag, ok := currencyLocales[unit.String()]
	if !ok {
		tag = currencyLocales["EUR"]
	}
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit.Amount(amount)))
}
