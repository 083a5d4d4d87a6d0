package issues

import (
	"regexp"
	"strconv"
)

var (
	debtKiloDays = regexp.MustCompile(`(\d+)kd`)
	debtDays     = regexp.MustCompile(`(\d+)d`)
	debtHours    = regexp.MustCompile(`(\d+)h`)
	debtMinutes  = regexp.MustCompile(`(\d+)min`)
)

// DebtMinutes converts a duration such as "1kd2d3h4min" into minutes.
// A day counts 24 hours here. Missing components count as zero.
func DebtMinutes(debt string) int {
	if debt == "" {
		return 0
	}
	kd := debtComponent(debtKiloDays, debt)
	d := debtComponent(debtDays, debt)
	h := debtComponent(debtHours, debt)
	m := debtComponent(debtMinutes, debt)
	return ((kd*1000+d)*24+h)*60 + m
}

func debtComponent(re *regexp.Regexp, debt string) int {
	m := re.FindStringSubmatch(debt)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
