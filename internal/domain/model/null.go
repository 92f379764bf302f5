package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
)

// NullFloat is a real value that may be undefined. Undefined values flow
// through arithmetic instead of being replaced by a guess.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some returns a defined value. NaN is treated as undefined.
func Some(v float64) NullFloat {
	if math.IsNaN(v) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// None returns an undefined value.
func None() NullFloat { return NullFloat{} }

// Sub returns n - o, undefined when either side is undefined.
func (n NullFloat) Sub(o NullFloat) NullFloat {
	if !n.Valid || !o.Valid {
		return NullFloat{}
	}
	return Some(n.Float64 - o.Float64)
}

// Or returns the value, or fill when undefined.
func (n NullFloat) Or(fill float64) float64 {
	if !n.Valid {
		return fill
	}
	return n.Float64
}

// String renders the value, empty when undefined.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'g', -1, 64)
}

// MarshalJSON encodes undefined as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON accepts a number or null.
func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// Scan implements sql.Scanner.
func (n *NullFloat) Scan(src any) error {
	var f sql.NullFloat64
	if err := f.Scan(src); err != nil {
		return err
	}
	*n = NullFloat{Float64: f.Float64, Valid: f.Valid}
	return nil
}

// Value implements driver.Valuer.
func (n NullFloat) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Float64, nil
}
