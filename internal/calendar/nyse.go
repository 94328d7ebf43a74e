package calendar

import "time"

// nyseRules computes the full-day closures and 13:00 early closes for a year.
func nyseRules(year int, loc *time.Location) yearRules {
	r := yearRules{
		holidays:    make(map[string]bool),
		earlyCloses: make(map[string]bool),
	}
	add := func(t time.Time) { r.holidays[t.Format(dateLayout)] = true }
	date := func(m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, loc) }

	// New Year's Day falling on Saturday is not observed on the prior Friday.
	if ny := date(time.January, 1); ny.Weekday() == time.Sunday {
		add(ny.AddDate(0, 0, 1))
	} else if ny.Weekday() != time.Saturday {
		add(ny)
	}
	if year >= 1998 {
		add(nthWeekday(year, time.January, time.Monday, 3, loc))
	}
	add(nthWeekday(year, time.February, time.Monday, 3, loc))
	add(easter(year, loc).AddDate(0, 0, -2))
	add(lastWeekday(year, time.May, time.Monday, loc))
	if year >= 2022 {
		add(observed(date(time.June, 19)))
	}
	add(observed(date(time.July, 4)))
	add(nthWeekday(year, time.September, time.Monday, 1, loc))
	thanksgiving := nthWeekday(year, time.November, time.Thursday, 4, loc)
	add(thanksgiving)
	add(observed(date(time.December, 25)))

	early := func(t time.Time) {
		if wd := t.Weekday(); wd >= time.Monday && wd <= time.Thursday {
			r.earlyCloses[t.Format(dateLayout)] = true
		}
	}
	early(date(time.July, 3))
	r.earlyCloses[thanksgiving.AddDate(0, 0, 1).Format(dateLayout)] = true
	early(date(time.December, 24))

	return r
}

// observed shifts Saturday holidays to Friday and Sunday holidays to Monday.
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// easter returns Easter Sunday (Gregorian, anonymous algorithm).
func easter(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
