// Package iface maps the fixed set of logical interface selectors onto
// system network interfaces.
package iface

import (
	"errors"
	"fmt"
	"net"
)

// NetInterface is a logical interface selector. Its string form is the
// platform device name (see `networksetup -listallhardwareports`).
type NetInterface int

const (
	WiFi NetInterface = iota
	BluetoothPAN
	Thunderbolt1
	Thunderbolt2
	Thunderbolt3
	Thunderbolt4
	ThunderboltBridge
)

// Default is the interface mirrored when nothing else is selected.
const Default = WiFi

// ErrInterfaceNotFound is returned when no system interface carries the
// selector's device name.
var ErrInterfaceNotFound = errors.New("ethermirror: interface not found")

var deviceNames = map[NetInterface]string{
	WiFi:              "en0",
	BluetoothPAN:      "en11",
	Thunderbolt1:      "en1",
	Thunderbolt2:      "en2",
	Thunderbolt3:      "en3",
	Thunderbolt4:      "en4",
	ThunderboltBridge: "bridge0",
}

var logicalNames = map[string]NetInterface{
	"wifi":               WiFi,
	"bluetooth-pan":      BluetoothPAN,
	"thunderbolt1":       Thunderbolt1,
	"thunderbolt2":       Thunderbolt2,
	"thunderbolt3":       Thunderbolt3,
	"thunderbolt4":       Thunderbolt4,
	"thunderbolt-bridge": ThunderboltBridge,
}

// String returns the device name, e.g. "en0".
func (n NetInterface) String() string {
	if name, ok := deviceNames[n]; ok {
		return name
	}
	return "unknown"
}

// Logical returns the selector name accepted by Parse, or "" for values
// outside the table.
func (n NetInterface) Logical() string {
	for k, v := range logicalNames {
		if v == n {
			return k
		}
	}
	return ""
}

// Parse maps a logical name such as "wifi" to its table entry.
func Parse(logical string) (NetInterface, error) {
	n, ok := logicalNames[logical]
	if !ok {
		return 0, fmt.Errorf("unknown interface selector %q", logical)
	}
	return n, nil
}

// Names returns the accepted logical names.
func Names() []string {
	names := make([]string, 0, len(logicalNames))
	for n := WiFi; n <= ThunderboltBridge; n++ {
		names = append(names, n.Logical())
	}
	return names
}

// Resolve returns the first interface whose name exactly matches sel.
func Resolve(sel NetInterface, interfaces []net.Interface) (net.Interface, error) {
	name := sel.String()
	for _, ifi := range interfaces {
		if ifi.Name == name {
			return ifi, nil
		}
	}
	return net.Interface{}, fmt.Errorf("no interface named %s: %w", name, ErrInterfaceNotFound)
}

// ResolveSystem resolves sel against the interfaces currently present on
// the host.
func ResolveSystem(sel NetInterface) (net.Interface, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return net.Interface{}, fmt.Errorf("list interfaces: %w", err)
	}
	return Resolve(sel, interfaces)
}
