package adv

import "github.com/pkg/errors"

// MaxEIRPacketLength is the maximum allowed AdvertisingPacket
// and ScanResponsePacket length.
const MaxEIRPacketLength = 31

// MaxExtendedPacketLength is the maximum advertising data length of an
// extended (Bluetooth 5) advertising set.
const MaxExtendedPacketLength = 1650

// ErrNotFit indicates the field does not fit into the packet.
var ErrNotFit = errors.New("field does not fit into the packet")

// ErrInvalid indicates a field argument is invalid.
var ErrInvalid = errors.New("invalid field")

// EmptyOrNilPdu is returned when there is nothing to parse.
var EmptyOrNilPdu = errors.New("nil/empty pdu")

// Advertising flags
const (
	FlagLimitedDiscoverable = 0x01 // LE Limited Discoverable Mode
	FlagGeneralDiscoverable = 0x02 // LE General Discoverable Mode
	FlagLEOnly              = 0x04 // BR/EDR Not Supported. Bit 37 of LMP Feature Mask Definitions (Page 0)
	FlagBothController      = 0x08 // Simultaneous LE and BR/EDR to Same Device Capable (Controller).
	FlagBothHost            = 0x10 // Simultaneous LE and BR/EDR to Same Device Capable (Host).
)

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
var types = struct {
	flags       byte
	uuid16inc   byte
	uuid16comp  byte
	uuid32inc   byte
	uuid32comp  byte
	uuid128inc  byte
	uuid128comp byte
	sol16       byte
	sol32       byte
	sol128      byte
	svc16       byte
	svc32       byte
	svc128      byte
	nameshort   byte
	namecomp    byte
	txpwr       byte
	mfgdata     byte
}{
	flags:       0x01,
	uuid16inc:   0x02,
	uuid16comp:  0x03,
	uuid32inc:   0x04,
	uuid32comp:  0x05,
	uuid128inc:  0x06,
	uuid128comp: 0x07,
	sol16:       0x14,
	sol32:       0x1f,
	sol128:      0x15,
	svc16:       0x16,
	svc32:       0x20,
	svc128:      0x21,
	nameshort:   0x08,
	namecomp:    0x09,
	txpwr:       0x0a,
	mfgdata:     0xff,
}

type fieldKind int

const (
	kindFlags fieldKind = iota
	kindServices
	kindSolicited
	kindServiceData
	kindName
	kindTxPower
	kindMfgData
)

type pduRecord struct {
	arrayElementSz int
	minSz          int
	svcDataUUIDSz  int
	kind           fieldKind
}

var pduDecodeMap = map[byte]pduRecord{
	types.uuid16inc:   {2, 2, 0, kindServices},
	types.uuid16comp:  {2, 2, 0, kindServices},
	types.uuid32inc:   {4, 4, 0, kindServices},
	types.uuid32comp:  {4, 4, 0, kindServices},
	types.uuid128inc:  {16, 16, 0, kindServices},
	types.uuid128comp: {16, 16, 0, kindServices},
	types.sol16:       {2, 2, 0, kindSolicited},
	types.sol32:       {4, 4, 0, kindSolicited},
	types.sol128:      {16, 16, 0, kindSolicited},
	types.svc16:       {0, 2, 2, kindServiceData},
	types.svc32:       {0, 4, 4, kindServiceData},
	types.svc128:      {0, 16, 16, kindServiceData},
	types.namecomp:    {0, 1, 0, kindName},
	types.nameshort:   {0, 1, 0, kindName},
	types.txpwr:       {0, 1, 0, kindTxPower},
	types.mfgdata:     {0, 2, 0, kindMfgData},
	types.flags:       {0, 1, 0, kindFlags},
}
