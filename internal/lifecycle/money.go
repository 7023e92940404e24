package lifecycle

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders whole-unit prices in one currency for one locale.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

func NewFormatter(code, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	return &Formatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// MustFormatter is NewFormatter for compile-time constants.
func MustFormatter(code, locale string) *Formatter {
	f, err := NewFormatter(code, locale)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Formatter) FormatAmount(v int64) string {
	return f.printer.Sprint(currency.NarrowSymbol(f.unit.Amount(v)))
}

// FormatPrice is one amount, or "min - max" when the service is quoted as a range.
func (f *Formatter) FormatPrice(s ServiceInfo) string {
	if s.IsRange() {
		return f.FormatAmount(s.Price) + " - " + f.FormatAmount(s.MaxPrice)
	}
	return f.FormatAmount(s.Price)
}
