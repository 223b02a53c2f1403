package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StringUint64 is a uint64 that marshals to JSON as a quoted decimal string.
// Cosmos sign docs carry all 64-bit integers this way so that JavaScript
// clients do not lose precision.
type StringUint64 uint64

// MarshalJSON implements json.Marshaler.
func (s StringUint64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(s), 10) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. Both quoted and bare numbers are accepted.
func (s *StringUint64) UnmarshalJSON(data []byte) error {
	var str string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
	} else {
		str = string(data)
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid uint64 %q", ErrSerialization, str)
	}
	*s = StringUint64(v)
	return nil
}

// String returns the decimal representation.
func (s StringUint64) String() string {
	return strconv.FormatUint(uint64(s), 10)
}
