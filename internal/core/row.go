package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the persisted timestamp format (local time).
const TimestampLayout = "2006-01-02 15:04:05"

// timestampMinuteLayout is accepted on read for rows written at minute resolution.
const timestampMinuteLayout = "2006-01-02 15:04"

// Header is the column layout shared by every row-oriented backend.
var Header = []string{"Timestamp", "User", "Type", "Category", "Item", "Value", "Points"}

// Row encodes the record as the seven persisted columns.
func (r Record) Row() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		r.User,
		string(r.Direction),
		string(r.Category),
		r.Item,
		r.Value.String(),
		strconv.FormatInt(r.Points, 10),
	}
}

// IsHeader reports whether cols is the header row.
func IsHeader(cols []string) bool {
	if len(cols) < len(Header) {
		return false
	}
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(cols[i]), h) {
			return false
		}
	}
	return true
}

// ParseRow decodes a persisted row in the given location. Unknown categories
// are kept verbatim; anything else that does not decode is ErrMalformedRecord.
func ParseRow(cols []string, loc *time.Location) (Record, error) {
	if len(cols) < len(Header) {
		return Record{}, fmt.Errorf("%w: want %d columns, got %d", ErrMalformedRecord, len(Header), len(cols))
	}
	cols = trimAll(cols)
	ts, err := ParseTimestamp(cols[0], loc)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRecord, cols[0])
	}
	dir := Direction(strings.ToLower(cols[2]))
	if !dir.Valid() {
		return Record{}, fmt.Errorf("%w: type %q", ErrMalformedRecord, cols[2])
	}
	value, err := decimal.NewFromString(cols[5])
	if err != nil {
		return Record{}, fmt.Errorf("%w: value %q", ErrMalformedRecord, cols[5])
	}
	points, err := strconv.ParseInt(cols[6], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: points %q", ErrMalformedRecord, cols[6])
	}
	return Record{
		Timestamp: ts,
		User:      cols[1],
		Direction: dir,
		Category:  Category(cols[3]),
		Item:      cols[4],
		Value:     value,
		Points:    points,
	}, nil
}

// ParseTimestamp accepts second or minute resolution.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(TimestampLayout, s, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation(timestampMinuteLayout, s, loc)
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
