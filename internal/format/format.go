package format

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// fallbackUnit is used for codes x/text does not recognise.
var fallbackUnit = currency.MustParseISO("XAF")

// Amount formats a whole-unit amount with locale grouping and the ISO currency code.
// Example: Amount(12345, "XAF", "en") => "XAF 12,345"; French places the code after the digits.
func Amount(amount int64, code, lang string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = fallbackUnit
	}
	tag := tagFor(lang)
	digits := Number(amount, lang)
	if base, _ := tag.Base(); base.String() == "fr" {
		return digits + " " + unit.String()
	}
	return unit.String() + " " + digits
}

// Number formats an integer with the grouping separator of lang.
func Number(n int64, lang string) string {
	return message.NewPrinter(tagFor(lang)).Sprintf("%d", n)
}

// Percent rounds a funded percentage for display and clamps it to [0, 100].
func Percent(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return int(math.Round(p))
}

func tagFor(lang string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return language.English
	}
	return tag
}
