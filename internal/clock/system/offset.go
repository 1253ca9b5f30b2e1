package system

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// FixedZone parses an offset such as "+08:00" or "-0330" into a location
// whose abbreviation mirrors the Etc/GMT zones ("+08", "-0330").
func FixedZone(offset string) (*time.Location, error) {
	m := offsetPattern.FindStringSubmatch(offset)
	if m == nil {
		return nil, fmt.Errorf("invalid utc offset %q", offset)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("utc offset %q out of range", offset)
	}
	name := m[1] + m[2]
	if minutes != 0 {
		name += m[3]
	}
	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone(name, seconds), nil
}
