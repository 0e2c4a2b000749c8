package bleosc

// ReservedCompanyID is the manufacturer identifier under which sensors
// publish their CBOR payload.
const ReservedCompanyID uint16 = 0xFFFF

// Event is a single advertisement observed by a Scanner.
type Event struct {
	// Device identifies the broadcaster. It is the advertised local name, or
	// the address when the advertisement carries no name.
	Device  string
	Address string
	RSSI    int16

	// ManufacturerData maps the 16 bit company identifier to the bytes that
	// follow it in the manufacturer specific data record.
	ManufacturerData map[uint16][]byte
}

// Handler handles advertisement events.
type Handler func(ev Event)

// Filter returns true if the event carries a payload we know how to decode.
type Filter func(ev Event) bool

// CompanyFilter accepts events with manufacturer data under id.
func CompanyFilter(id uint16) Filter {
	return func(ev Event) bool {
		_, ok := ev.ManufacturerData[id]
		return ok
	}
}
