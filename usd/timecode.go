package usd

import "strconv"

// TimeCode selects which opinion of an attribute is read or written. The
// zero value is the default time, the non-sampled value.
type TimeCode struct {
	value   float64
	sampled bool
}

func DefaultTime() TimeCode {
	return TimeCode{}
}

func At(t float64) TimeCode {
	return TimeCode{value: t, sampled: true}
}

func (t TimeCode) IsDefault() bool {
	return !t.sampled
}

func (t TimeCode) Value() float64 {
	return t.value
}

func (t TimeCode) String() string {
	if !t.sampled {
		return "DEFAULT"
	}
	return strconv.FormatFloat(t.value, 'g', -1, 64)
}

// ParseTimeCode reads "", "default" or a number.
func ParseTimeCode(s string) (TimeCode, error) {
	if s == "" || s == "default" || s == "DEFAULT" {
		return DefaultTime(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TimeCode{}, err
	}
	return At(v), nil
}
