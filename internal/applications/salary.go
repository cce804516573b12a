package applications

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const currencySymbol = "£"

// FormatSalary normalises a salary into the display form "£50,000". Blank
// input gives "". Input that is not a non-negative number is returned as is.
func FormatSalary(salary string) string {
	if strings.TrimSpace(salary) == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == '£' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, salary)

	v, err := strconv.ParseFloat(cleaned, 64)
	// float64(math.MaxInt64) rounds up to 2^63, which no longer fits.
	if err != nil || v < 0 || math.IsNaN(v) || v >= math.MaxInt64 {
		return salary
	}
	return currencySymbol + message.NewPrinter(language.BritishEnglish).Sprintf("%d", int64(math.Round(v)))
}
