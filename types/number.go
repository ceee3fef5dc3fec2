package types

import (
	"bytes"
	"strconv"
)

// FloatText is a float64 that unmarshals from either a JSON number or a
// JSON string holding a number. The extraction collaborators are not
// consistent about quoting numerics in the snapshot and fill payloads.
type FloatText float64

func (f *FloatText) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = FloatText(v)
	return nil
}

func (f FloatText) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', -1, 64)), nil
}

// Float returns the plain float64 value.
func (f FloatText) Float() float64 {
	return float64(f)
}
