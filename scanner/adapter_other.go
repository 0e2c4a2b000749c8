//go:build !linux

package scanner

import "tinygo.org/x/bluetooth"

// Adapter returns the default adapter. Only BlueZ can select an adapter by
// name, so id is ignored here.
func Adapter(id string) *bluetooth.Adapter {
	return bluetooth.DefaultAdapter
}
