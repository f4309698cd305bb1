package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotSensorLine is returned for lines that hold no sensor readings.
var ErrNotSensorLine = errors.New("not a sensor reading line")

// ParseSensorLine decodes "F1:2|F2:-1|..." into distances keyed by sensor
// id. Entries that do not parse are dropped; a line with no valid entry
// at all yields ErrNotSensorLine.
func ParseSensorLine(line string) (map[string]int, error) {
	out := make(map[string]int)
	for _, entry := range strings.Split(strings.TrimSpace(line), string(Terminator)) {
		id, val, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || id == "" {
			continue
		}
		d, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		out[id] = d
	}
	if len(out) == 0 {
		return nil, ErrNotSensorLine
	}
	return out, nil
}

// IsSensorLine reports whether line carries at least one reading.
func IsSensorLine(line string) bool {
	_, err := ParseSensorLine(line)
	return err == nil
}

// FormatSensorLine renders readings in the order given by ids. Ids with
// no reading are omitted.
func FormatSensorLine(ids []string, readings map[string]int) string {
	var sb strings.Builder
	for _, id := range ids {
		d, ok := readings[id]
		if !ok {
			continue
		}
		sb.WriteString(id)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(d))
		sb.WriteByte(Terminator)
	}
	return sb.String()
}
