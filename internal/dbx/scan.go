package dbx

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
)

// Text scans a nullable TEXT column; NULL becomes "".
func Text(s *string) sql.Scanner { return textScanner{s} }

// Flag scans a 0/1 INTEGER column; NULL becomes false.
func Flag(b *bool) sql.Scanner { return flagScanner{b} }

// Time scans a timestamp column written by common.FormatTimestamp.
// NULL or empty leaves the zero time.
func Time(t *time.Time) sql.Scanner { return timeScanner{t} }

// NullTime scans a nullable timestamp column into a pointer.
func NullTime(t **time.Time) sql.Scanner { return nullTimeScanner{t} }

// TimeValue renders t for storage.
func TimeValue(t time.Time) string { return common.FormatTimestamp(t) }

// NullTimeValue renders t for storage, or NULL when t is nil.
func NullTimeValue(t *time.Time) driver.Value {
	if t == nil {
		return nil
	}
	return common.FormatTimestamp(*t)
}

// NullText stores "" as NULL.
func NullText(s string) driver.Value {
	if s == "" {
		return nil
	}
	return s
}

type textScanner struct{ dst *string }

func (s textScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.dst = ""
	case string:
		*s.dst = v
	case []byte:
		*s.dst = string(v)
	default:
		*s.dst = fmt.Sprint(v)
	}
	return nil
}

type flagScanner struct{ dst *bool }

func (s flagScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.dst = false
	case bool:
		*s.dst = v
	case int64:
		*s.dst = v != 0
	case int32:
		*s.dst = v != 0
	case float64:
		*s.dst = v != 0
	default:
		return fmt.Errorf("cannot scan %T into flag", src)
	}
	return nil
}

type timeScanner struct{ dst *time.Time }

func (s timeScanner) Scan(src any) error {
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	if t == nil {
		*s.dst = time.Time{}
		return nil
	}
	*s.dst = *t
	return nil
}

type nullTimeScanner struct{ dst **time.Time }

func (s nullTimeScanner) Scan(src any) error {
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = t
	return nil
}

func parseTime(src any) (*time.Time, error) {
	var raw string
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := v.UTC()
		return &u, nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return nil, fmt.Errorf("cannot scan %T into time", src)
	}
	if raw == "" {
		return nil, nil
	}
	t, err := common.ParseTimestamp(raw)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	t = t.UTC()
	return &t, nil
}
