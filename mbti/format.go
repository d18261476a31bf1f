package mbti

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PercentFormatter renders percentages with two decimals using the digit
// grouping of a locale.
type PercentFormatter struct {
	printer *message.Printer
}

// NewPercentFormatter parses a BCP 47 locale such as "en" or "ko-KR".
func NewPercentFormatter(locale string) (*PercentFormatter, error) {
	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		tag = parsed
	}
	return &PercentFormatter{printer: message.NewPrinter(tag)}, nil
}

// Format renders v as "12.34%".
func (f *PercentFormatter) Format(v float64) string {
	return f.printer.Sprintf("%.2f%%", v)
}

// Value renders v with two decimals and no percent sign.
func (f *PercentFormatter) Value(v float64) string {
	return f.printer.Sprintf("%.2f", v)
}
