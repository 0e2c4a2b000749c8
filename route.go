package bleosc

// Address builds the OSC address for a field of a device.
func Address(device, field string) string {
	return "/" + device + "/" + field
}

// Route sends one message per field of p to s, in payload order. A failed
// send does not stop the remaining fields; every failure is returned as a
// *SendError.
func Route(device string, p Payload, s Sink) []error {
	var errs []error
	for _, f := range p {
		addr := Address(device, f.Name)
		if err := s.Send(addr, f.Value); err != nil {
			errs = append(errs, &SendError{Device: device, Address: addr, Err: err})
		}
	}
	return errs
}
