package blescan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AddressLen is the number of octets in a device address.
const AddressLen = 6

// ParseAddress converts a colon separated address such as "AA:BB:CC:DD:EE:FF"
// into its integer form. Octets are accumulated from the last one, so the
// rightmost textual octet lands in bits 0-7: "AA:BB:CC:DD:EE:FF" is
// 0xAABBCCDDEEFF.
func ParseAddress(s string) (uint64, error) {
	octets := strings.Split(s, ":")
	if len(octets) != AddressLen {
		return 0, errors.Errorf("invalid address %q: want %d octets, have %d", s, AddressLen, len(octets))
	}

	var addr, shift uint64
	for i := len(octets) - 1; i >= 0; i-- {
		o, err := strconv.ParseUint(octets[i], 16, 8)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid address %q, octet %d", s, i)
		}
		addr += o << shift
		shift += 8
	}
	return addr, nil
}

// FormatAddress is the inverse of ParseAddress.
func FormatAddress(a uint64) string {
	b := make([]string, AddressLen)
	for i := AddressLen - 1; i >= 0; i-- {
		b[i] = fmt.Sprintf("%02X", byte(a))
		a >>= 8
	}
	return strings.Join(b, ":")
}
