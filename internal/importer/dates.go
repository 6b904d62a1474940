package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFormat is a named date-pattern recognizer. One format is chosen per
// import job and applied uniformly to every date-bearing cell in it.
type DateFormat struct {
	Name string // e.g. "dd/mm/yyyy"

	pattern  *regexp.Regexp
	dayIdx   int // capture group carrying the day
	monthIdx int
	yearIdx  int
	shortYY  bool // two-digit year
}

func newDateFormat(name, sep, order string, shortYY bool) DateFormat {
	esc := regexp.QuoteMeta(sep)
	year := `(\d{4})`
	if shortYY {
		year = `(\d{2})`
	}
	part := map[byte]string{'d': `(\d{1,2})`, 'm': `(\d{1,2})`, 'y': year}

	expr := `^` + part[order[0]] + esc + part[order[1]] + esc + part[order[2]] + `$`
	f := DateFormat{
		Name:    name,
		pattern: regexp.MustCompile(expr),
		shortYY: shortYY,
	}
	for i := 0; i < 3; i++ {
		switch order[i] {
		case 'd':
			f.dayIdx = i + 1
		case 'm':
			f.monthIdx = i + 1
		case 'y':
			f.yearIdx = i + 1
		}
	}
	return f
}

// dateFormats is the fixed catalog a caller chooses from. Names follow the
// lowercase d/m/y convention users see in the format picker.
var dateFormats = []DateFormat{
	newDateFormat("dd/mm/yyyy", "/", "dmy", false),
	newDateFormat("mm/dd/yyyy", "/", "mdy", false),
	newDateFormat("yyyy-mm-dd", "-", "ymd", false),
	newDateFormat("dd-mm-yyyy", "-", "dmy", false),
	newDateFormat("mm-dd-yyyy", "-", "mdy", false),
	newDateFormat("yyyy/mm/dd", "/", "ymd", false),
	newDateFormat("dd.mm.yyyy", ".", "dmy", false),
	newDateFormat("mm.dd.yyyy", ".", "mdy", false),
	newDateFormat("dd/mm/yy", "/", "dmy", true),
	newDateFormat("mm/dd/yy", "/", "mdy", true),
	newDateFormat("dd-mm-yy", "-", "dmy", true),
	newDateFormat("mm-dd-yy", "-", "mdy", true),
}

// DateFormats returns the full catalog for the format picker.
func DateFormats() []DateFormat {
	out := make([]DateFormat, len(dateFormats))
	copy(out, dateFormats)
	return out
}

// LookupDateFormat finds a format by name.
func LookupDateFormat(name string) (*DateFormat, bool) {
	for i := range dateFormats {
		if dateFormats[i].Name == name {
			return &dateFormats[i], true
		}
	}
	return nil, false
}

// Parse matches the cell against the format and decomposes it into a UTC
// date. It reports false for anything out of range or non-round-tripping
// (e.g. Feb 30); it never panics. Two-digit years above 50 resolve to the
// 1900s, the rest to the 2000s.
func (f *DateFormat) Parse(cell string) (time.Time, bool) {
	m := f.pattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[f.dayIdx])
	month, _ := strconv.Atoi(m[f.monthIdx])
	year, _ := strconv.Atoi(m[f.yearIdx])

	if f.shortYY {
		if year > 50 {
			year += 1900
		} else {
			year += 2000
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2100 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 1); reject on mismatch.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
