package view

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatBRL formats v as Brazilian Real, e.g. 12000 -> "R$ 12.000,00".
// Negative values get a leading minus: "-R$ 5,50".
func FormatBRL(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	if cents == 0 {
		sign = ""
	}

	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("R$ ")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

// FormatPrice renders a row price; outcomes are shown as "- R$ 40,00".
func FormatPrice(price float64, outcome bool) string {
	if outcome {
		return "- " + FormatBRL(price)
	}
	return FormatBRL(price)
}

// FormatDate renders t as dd/mm/yyyy in loc. The zero time renders empty.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006")
}
