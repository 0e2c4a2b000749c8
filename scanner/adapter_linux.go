package scanner

import "tinygo.org/x/bluetooth"

// Adapter returns the BlueZ adapter named id (hci0, hci1, ...), or the
// default adapter when id is empty.
func Adapter(id string) *bluetooth.Adapter {
	if id == "" {
		return bluetooth.DefaultAdapter
	}
	return bluetooth.NewAdapter(id)
}
