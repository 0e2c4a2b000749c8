package bleosc

// BridgeOption is an interface which the bridge implements to allow using
// configuration options.
type BridgeOption interface {
	SetCompanyID(uint16) error
	SetDecoder(DecodeFunc) error
	SetObserver(Observer) error
	SetLogger(Logger) error
}

// An Option is a configuration function, which configures the bridge.
type Option func(BridgeOption) error

// OptCompanyID overrides the manufacturer identifier carrying the payload.
func OptCompanyID(id uint16) Option {
	return func(opt BridgeOption) error {
		return opt.SetCompanyID(id)
	}
}

// OptDecoder replaces the payload decoder.
func OptDecoder(fn DecodeFunc) Option {
	return func(opt BridgeOption) error {
		return opt.SetDecoder(fn)
	}
}

// OptObserver sets a function called with the outcome of every event.
func OptObserver(fn Observer) Option {
	return func(opt BridgeOption) error {
		return opt.SetObserver(fn)
	}
}

// OptLogger sets the logger used by the bridge.
func OptLogger(l Logger) Option {
	return func(opt BridgeOption) error {
		return opt.SetLogger(l)
	}
}
