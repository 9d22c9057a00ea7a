package grid

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a monthly rent as "$4,000/mo".
func FormatPrice(price int) string {
	return printer.Sprintf("$%d/mo", price)
}
