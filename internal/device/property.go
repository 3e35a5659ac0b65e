package device

import (
	"fmt"
	"strings"
)

// Property is the characteristic properties bit field (Bluetooth Core Vol 3, Part G, 3.3.1.1)
type Property uint8

const (
	PropBroadcast     Property = 0x01
	PropRead          Property = 0x02
	PropWriteNR       Property = 0x04
	PropWrite         Property = 0x08
	PropNotify        Property = 0x10
	PropIndicate      Property = 0x20
	PropSignedWrite   Property = 0x40
	PropExtendedProps Property = 0x80
)

var propertyNames = []struct {
	p    Property
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteNR, "write-without-response"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropSignedWrite, "signed-write"},
	{PropExtendedProps, "extended"},
}

func (p Property) CanNotify() bool   { return p&PropNotify != 0 }
func (p Property) CanIndicate() bool { return p&PropIndicate != 0 }

// String lists the set flags, comma separated
func (p Property) String() string {
	var names []string
	for _, pn := range propertyNames {
		if p&pn.p != 0 {
			names = append(names, pn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseProperty parses a comma separated list of property names as produced by String
func ParseProperty(s string) (Property, error) {
	var p Property
	if strings.TrimSpace(s) == "" || s == "none" {
		return 0, nil
	}
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		found := false
		for _, pn := range propertyNames {
			if pn.name == name {
				p |= pn.p
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown characteristic property %q", name)
		}
	}
	return p, nil
}
