package adv

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rigado/blescan/sliceops"
)

// record is one length/type/data structure of an advertising PDU. A
// malformed record keeps whatever bytes it had; only Extensions reports it.
type record struct {
	typ       byte
	data      []byte
	malformed bool
}

func checkArray(size int, bytes []byte) error {
	//valid size?
	if size <= 0 {
		return fmt.Errorf("invalid size")
	}

	//bytes empty/nil?
	if len(bytes) == 0 {
		return fmt.Errorf("nil/empty bytes")
	}

	//any remainder?
	count := len(bytes) / size
	rem := len(bytes) % size
	if rem != 0 || count == 0 {
		return fmt.Errorf("incorrect size")
	}

	return nil
}

// decode splits pdu into records, keeping the order they appear in. Records
// of known types are validated; unknown types are kept as is.
//
// Decoding never stops at a bad record: one failing validation is kept as a
// malformed record and decoding resumes after it, and a record running past
// the end of pdu is kept as a malformed record holding the truncated tail.
// The returned error describes the first bad record, if any; recs is
// complete either way.
func decode(pdu []byte) ([]record, error) {
	if len(pdu) == 0 {
		return nil, EmptyOrNilPdu
	}

	var recs []record
	var first error
	fail := func(err error) {
		if first == nil {
			first = err
		}
	}

	i := 0
	for (i + 1) < len(pdu) {
		//length @ offset 0
		//type @ offset 1
		//data @ 2 - (length-1)
		length := int(pdu[i])

		//zero length marks the end of significant data (padding follows)
		if length == 0 {
			return recs, first
		}
		typ := pdu[i+1]

		//do we have all the bytes for the payload?
		if (i + length) >= len(pdu) {
			recs = append(recs, record{typ: typ, data: sliceops.Clone(pdu[i+2:]), malformed: true})
			fail(fmt.Errorf("buffer overflow: want %v, have %v, idx %v", i+length, len(pdu), i))
			return recs, first
		}

		start := i + 2
		end := start + length - 1
		rec := record{typ: typ, data: sliceops.Clone(pdu[start:end])}

		if dec, ok := pduDecodeMap[typ]; ok {
			//have min length?
			if dec.minSz > len(rec.data) {
				rec.malformed = true
				fail(fmt.Errorf("adv type %v: min length %v, have %v, idx %v", typ, dec.minSz, len(rec.data), i))
			} else if dec.arrayElementSz > 0 {
				//expecting array?
				if err := checkArray(dec.arrayElementSz, rec.data); err != nil {
					rec.malformed = true
					fail(errors.Wrapf(err, "adv type %v, idx %v", typ, i))
				}
			}
		}

		recs = append(recs, rec)
		i += length + 1
	}

	//a lone length byte with no type after it
	if i < len(pdu) && pdu[i] != 0 {
		recs = append(recs, record{typ: 0x00, data: sliceops.Clone(pdu[i:]), malformed: true})
		fail(fmt.Errorf("buffer overflow: lone length byte %v, idx %v", pdu[i], i))
	}

	return recs, first
}
