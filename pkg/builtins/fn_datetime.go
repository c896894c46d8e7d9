package builtins

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/itchyny/timefmt-go"

	"github.com/sandrolain/jqcore/pkg/types"
)

// Broken-down times are arrays of
// [year, month (0-11), day, hours, minutes, seconds, weekday, yearday].

var (
	wdayWindowStart = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)
	wdayWindowEnd   = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func fnStrptime(_ Env, args []any) (any, error) {
	s, ok1 := args[0].(string)
	layout, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, types.NewError(types.ErrDateTime, "strptime/1 requires string inputs and arguments")
	}
	return Strptime(s, layout)
}

// Strptime parses s according to a strptime(3) format. Trailing whitespace
// is allowed and returned as a ninth element.
func Strptime(s, layout string) (any, error) {
	body := strings.TrimRightFunc(s, unicode.IsSpace)
	t, err := timefmt.Parse(body, layout)
	if err != nil {
		return nil, types.Errorf(types.ErrDateTime, "date \"%s\" does not match format \"%s\"", s, layout).WithCause(err)
	}
	tm := brokenDown(t, 0)
	if !t.Before(wdayWindowStart) && t.Before(wdayWindowEnd) {
		year, mon, mday := t.Year()-1900, int(t.Month())-1, t.Day()
		tm[6] = float64(weekday(year, mon, mday))
		tm[7] = float64(yearday(year, mon, mday))
	}
	if rest := s[len(body):]; rest != "" {
		tm = append(tm, rest)
	}
	return tm, nil
}

// weekday is Gauss's day-of-week algorithm on tm-style fields (years since
// 1900, zero-based month). It is exact from 1900-03-01 to 2099-12-31.
func weekday(year, mon, mday int) int {
	century := (1900 + year) / 100
	y := (1900 + year) % 100
	if mon < 2 {
		y--
	}
	m := mon - 1
	if m < 1 {
		m += 12
	}
	wday := (mday + int(math.Floor(2.6*float64(m)-0.2)) + y + int(math.Floor(float64(y)/4)) +
		int(math.Floor(float64(century)/4)) - 2*century) % 7
	if wday < 0 {
		wday += 7
	}
	return wday
}

var daysBeforeMonth = [...]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// yearday returns the zero-based day of the year.
func yearday(year, mon, mday int) int {
	y := 1900 + year
	leap := 0
	if mon > 1 && y%4 == 0 && (y%100 != 0 || y%400 == 0) {
		leap = 1
	}
	if mon < 0 {
		mon = -mon
	}
	mon %= 12
	return daysBeforeMonth[mon] + leap + mday - 1
}

// brokenDown converts t to the array form, adding frac to the seconds.
func brokenDown(t time.Time, frac float64) []any {
	return []any{
		float64(t.Year()),
		float64(t.Month() - 1),
		float64(t.Day()),
		float64(t.Hour()),
		float64(t.Minute()),
		float64(t.Second()) + frac,
		float64(t.Weekday()),
		float64(t.YearDay() - 1),
	}
}

// timeOf reads a broken-down time. Missing trailing fields are zero and the
// weekday and yearday fields are ignored; out-of-range fields normalize.
func timeOf(v any, loc *time.Location) (time.Time, bool) {
	a, ok := v.([]any)
	if !ok {
		return time.Time{}, false
	}
	var f [6]int
	for i := 0; i < len(a) && i < 8; i++ {
		x, ok := a[i].(float64)
		if !ok || math.IsNaN(x) {
			return time.Time{}, false
		}
		if i < len(f) {
			f[i] = clampInt32(x)
		}
	}
	return time.Date(f[0], time.Month(f[1]+1), f[2], f[3], f[4], f[5], 0, loc), true
}

func clampInt32(x float64) int {
	switch {
	case x < math.MinInt32:
		return math.MinInt32
	case x > math.MaxInt32:
		return math.MaxInt32
	}
	return int(x)
}

func fnMktime(_ Env, args []any) (any, error) {
	if _, ok := args[0].([]any); !ok {
		return nil, types.NewError(types.ErrDateTime, "mktime requires array inputs")
	}
	t, ok := timeOf(args[0], time.UTC)
	if !ok {
		return nil, types.NewError(types.ErrDateTime, "mktime requires parsed datetime inputs")
	}
	return float64(t.Unix()), nil
}

// maxEpochSeconds keeps the broken-down year within 32 bits.
const maxEpochSeconds = 1 << 55

func splitTime(name string, v any, loc *time.Location) ([]any, error) {
	secs, ok := v.(float64)
	if !ok {
		return nil, types.Errorf(types.ErrDateTime, "%s() requires numeric inputs", name)
	}
	if math.IsNaN(secs) || math.Abs(secs) > maxEpochSeconds {
		return nil, types.NewError(types.ErrDateTime, "error converting number of seconds since epoch to datetime")
	}
	whole := math.Floor(secs)
	return brokenDown(time.Unix(int64(whole), 0).In(loc), secs-whole), nil
}

func fnGmtime(_ Env, args []any) (any, error) {
	return splitTime("gmtime", args[0], time.UTC)
}

func fnLocaltime(env Env, args []any) (any, error) {
	return splitTime("localtime", args[0], env.Location())
}

func strftime(name, split string, v, layout any, loc *time.Location) (any, error) {
	if _, ok := v.(float64); ok {
		var err error
		if v, err = splitTime(split, v, loc); err != nil {
			return nil, err
		}
	} else if _, ok := v.([]any); !ok {
		return nil, types.Errorf(types.ErrDateTime, "%s/1 requires parsed datetime inputs", name)
	}
	f, ok := layout.(string)
	if !ok {
		return nil, types.Errorf(types.ErrDateTime, "%s/1 requires a string format", name)
	}
	t, ok := timeOf(v, loc)
	if !ok {
		return nil, types.Errorf(types.ErrDateTime, "%s/1 requires parsed datetime inputs", name)
	}
	return timefmt.Format(t, f), nil
}

func fnStrftime(_ Env, args []any) (any, error) {
	return strftime("strftime", "gmtime", args[0], args[1], time.UTC)
}

func fnStrflocaltime(env Env, args []any) (any, error) {
	return strftime("strflocaltime", "localtime", args[0], args[1], env.Location())
}

func fnNow(env Env, _ []any) (any, error) {
	t := env.Now()
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9, nil
}
