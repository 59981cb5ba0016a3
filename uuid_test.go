package blescan

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestNormalizeUUID(t *testing.T) {
	cases := map[string]string{
		"180d":                                 "0000180d-0000-1000-8000-00805f9b34fb",
		"180D":                                 "0000180d-0000-1000-8000-00805f9b34fb",
		" 0000180d ":                           "0000180d-0000-1000-8000-00805f9b34fb",
		"12345678":                             "12345678-0000-1000-8000-00805f9b34fb",
		"0000180D-0000-1000-8000-00805F9B34FB": "0000180d-0000-1000-8000-00805f9b34fb",
		"6e400001b5a3f393e0a9e50e24dcca9e":     "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
	}
	for in, want := range cases {
		got, err := NormalizeUUID(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %s, want %s", in, got, want)
		}
	}

	for _, in := range []string{"", "   ", "xyz", "123456789", "6e400001-b5a3-f393-e0a9"} {
		_, err := NormalizeUUID(in)
		if errors.Cause(err) != ErrInvalidArgument {
			t.Fatalf("%q: got %v, want invalid argument", in, err)
		}
	}
}

func TestUUIDBytes(t *testing.T) {
	cases := []struct {
		in   string
		want []byte
	}{
		{"180d", []byte{0x0d, 0x18}},
		{"12345678", []byte{0x78, 0x56, 0x34, 0x12}},
		{"6e400001-b5a3-f393-e0a9-e50e24dcca9e", []byte{
			0x9e, 0xca, 0xdc, 0x24, 0x0e, 0xe5, 0xa9, 0xe0,
			0x93, 0xf3, 0xa3, 0xb5, 0x01, 0x00, 0x40, 0x6e,
		}},
	}
	for _, c := range cases {
		b, err := UUIDBytes(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if !bytes.Equal(b, c.want) {
			t.Fatalf("%s: got % x, want % x", c.in, b, c.want)
		}

		back, err := UUIDFromBytes(b)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if back != MustNormalizeUUID(c.in) {
			t.Fatalf("%s: round trip gave %s", c.in, back)
		}
	}

	if _, err := UUIDFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatalf("3 byte uuid: no error")
	}
}

func TestParseUUIDList(t *testing.T) {
	l, err := ParseUUIDList("180d, ,180f,")
	if err != nil {
		t.Fatal(err)
	}
	if len(l) != 2 || l[0] != ShortUUID(0x180d) || l[1] != ShortUUID(0x180f) {
		t.Fatalf("got %v", l)
	}

	l, err = ParseUUIDList("")
	if err != nil || len(l) != 0 {
		t.Fatalf("empty list: %v %v", l, err)
	}

	if _, err := ParseUUIDList("180d,nope"); errors.Cause(err) != ErrInvalidArgument {
		t.Fatalf("bad entry: %v", err)
	}
}
