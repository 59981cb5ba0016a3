package wire

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Bytes is a byte payload that encodes as a JSON array of numbers rather
// than base64, the shape host runtimes deserialize byte arrays from. Signed
// values (-128..-1) are accepted on input.
type Bytes []byte

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+4*len(b))
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := jsoniter.Unmarshal(data, &vals); err != nil {
		return errors.Wrap(err, "byte array")
	}
	out := make([]byte, len(vals))
	for i, v := range vals {
		if v < -128 || v > 255 {
			return errors.Errorf("byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
