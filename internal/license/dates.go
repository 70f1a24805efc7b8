package license

import (
	"fmt"
	"regexp"
)

var (
	// Day and month are taken positionally; 03/04/2021 is always 3 April.
	dayMonthYearRange = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4}).*?(\d{1,2})/(\d{1,2})/(\d{4})`)
	yearMonthDayRange = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2}).*?(\d{4})/(\d{2})/(\d{2})`)
)

// ParseLicenseWindow extracts the license start and end dates (YYYY-MM-DD) from
// the free-text license description. The D/M/YYYY form is tried first and wins
// whenever it matches; otherwise YYYY/MM/DD is tried. Text matching neither
// yields two nils. Calendar validity is not checked.
func ParseLicenseWindow(details string) (start, end *string) {
	s := trimSpace(details)
	if s == "" {
		return nil, nil
	}
	if m := dayMonthYearRange.FindStringSubmatch(s); m != nil {
		return ptr(fmt.Sprintf("%s-%s-%s", m[3], pad2(m[2]), pad2(m[1]))),
			ptr(fmt.Sprintf("%s-%s-%s", m[6], pad2(m[5]), pad2(m[4])))
	}
	if m := yearMonthDayRange.FindStringSubmatch(s); m != nil {
		return ptr(m[1] + "-" + m[2] + "-" + m[3]), ptr(m[4] + "-" + m[5] + "-" + m[6])
	}
	return nil, nil
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
