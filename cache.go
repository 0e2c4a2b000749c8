package bleosc

// NameCache remembers the last local name seen for a device address.
type NameCache interface {
	Store(addr, name string) error
	Load(addr string) (string, bool)
	Clear() error
}
