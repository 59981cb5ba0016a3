package blescan

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rigado/blescan/sliceops"
)

// BaseUUID is the Bluetooth base UUID that 16 and 32-bit UUIDs are aliases into.
const BaseUUID = "00000000-0000-1000-8000-00805f9b34fb"

const baseSuffix = "-0000-1000-8000-00805f9b34fb"

// ShortUUID expands a 16 or 32-bit assigned number into its 128-bit text form.
func ShortUUID(v uint32) string {
	return fmt.Sprintf("%08x%s", v, baseSuffix)
}

// NormalizeUUID returns the canonical lower-case 128-bit text form of a BLE
// UUID given as 16/32-bit hex ("180d", "0000180D") or as a full UUID with or
// without dashes.
func NormalizeUUID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return "", errors.Wrap(ErrInvalidArgument, "empty uuid")
	}

	if len(s) <= 8 {
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidArgument, "invalid short uuid %q", s)
		}
		return ShortUUID(uint32(v)), nil
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidArgument, "invalid uuid %q: %v", s, err)
	}
	return u.String(), nil
}

// MustNormalizeUUID is like NormalizeUUID but panics on malformed input.
func MustNormalizeUUID(s string) string {
	n, err := NormalizeUUID(s)
	if err != nil {
		panic(err)
	}
	return n
}

// UUIDFromBytes converts a UUID as it appears on air (little-endian, 2, 4 or
// 16 bytes) into its canonical text form.
func UUIDFromBytes(b []byte) (string, error) {
	switch len(b) {
	case 2:
		return ShortUUID(uint32(binary.LittleEndian.Uint16(b))), nil
	case 4:
		return ShortUUID(binary.LittleEndian.Uint32(b)), nil
	case 16:
		u, err := uuid.FromBytes(sliceops.SwapBuf(b))
		if err != nil {
			return "", errors.Wrap(err, "uuid from bytes")
		}
		return u.String(), nil
	}
	return "", errors.Errorf("invalid uuid length %d", len(b))
}

// UUIDBytes returns the shortest on-air (little-endian) encoding of u.
func UUIDBytes(u string) ([]byte, error) {
	n, err := NormalizeUUID(u)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(n, baseSuffix) {
		v, _ := strconv.ParseUint(n[:8], 16, 32)
		if v <= 0xFFFF {
			b := make([]byte, 2)
			binary.LittleEndian.PutUint16(b, uint16(v))
			return b, nil
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b, nil
	}

	parsed := uuid.MustParse(n)
	return sliceops.SwapBuf(parsed[:]), nil
}

// ParseUUIDList splits a comma separated list of UUIDs, the form hosts pass
// required services in. Empty entries are skipped; any malformed entry fails
// the whole list.
func ParseUUIDList(list string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if len(strings.TrimSpace(s)) == 0 {
			continue
		}
		n, err := NormalizeUUID(s)
		if err != nil {
			return nil, errors.Wrap(err, "uuid list")
		}
		out = append(out, n)
	}
	return out, nil
}
