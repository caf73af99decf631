package export

import (
	"fmt"
	"time"
)

// Supported locales.
const (
	LocaleID = "id"
	LocaleEN = "en"
)

type locale struct {
	lang     string
	weekdays [7]string
	months   [12]string
	// longDate formats weekday, day, month name and year.
	longDate func(weekday string, day int, month string, year int) string
	footer   func(page, total int) string
}

var locales = map[string]locale{
	LocaleID: {
		lang:     "id",
		weekdays: [7]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"},
		months: [12]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni",
			"Juli", "Agustus", "September", "Oktober", "November", "Desember"},
		longDate: func(weekday string, day int, month string, year int) string {
			return fmt.Sprintf("%s, %d %s %d", weekday, day, month, year)
		},
		footer: func(page, total int) string {
			return fmt.Sprintf("Halaman %d dari %d", page, total)
		},
	},
	LocaleEN: {
		lang:     "en",
		weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		longDate: func(weekday string, day int, month string, year int) string {
			return fmt.Sprintf("%s, %s %d, %d", weekday, month, day, year)
		},
		footer: func(page, total int) string {
			return fmt.Sprintf("Page %d of %d", page, total)
		},
	},
}

func lookupLocale(name string) (locale, error) {
	if name == "" {
		name = LocaleID
	}
	l, ok := locales[name]
	if !ok {
		return locale{}, fmt.Errorf("unsupported locale %q", name)
	}
	return l, nil
}

func (l locale) formatDate(t time.Time) string {
	return l.longDate(l.weekdays[t.Weekday()], t.Day(), l.months[t.Month()-1], t.Year())
}
