package accessory

import (
	"fmt"
	"slices"
)

// UnsupportedKind classifies why the accessory framework cannot be used.
type UnsupportedKind int

const (
	VendorNotSupported UnsupportedKind = iota + 1
	DeviceNotSupported
	LibraryNotInstalled
	LibraryUpdateRequired
	LibraryUpdateRecommended
)

func (k UnsupportedKind) String() string {
	switch k {
	case VendorNotSupported:
		return "vendor not supported"
	case DeviceNotSupported:
		return "device not supported"
	case LibraryNotInstalled:
		return "library not installed"
	case LibraryUpdateRequired:
		return "library update required"
	case LibraryUpdateRecommended:
		return "library update recommended"
	default:
		return fmt.Sprintf("unsupported(%d)", int(k))
	}
}

// UnsupportedError is returned by SDK.Initialize when the environment cannot
// host the accessory service.
type UnsupportedError struct {
	Kind   UnsupportedKind
	Detail string
}

func (e *UnsupportedError) Error() string {
	if e.Detail == "" {
		return "accessory framework: " + e.Kind.String()
	}
	return fmt.Sprintf("accessory framework: %s: %s", e.Kind, e.Detail)
}

// Fatal reports whether the service has to stop. Only a recommended update
// lets it carry on.
func (e *UnsupportedError) Fatal() bool {
	return e.Kind != LibraryUpdateRecommended
}

// SDK is the accessory framework the provider runs on.
type SDK interface {
	Initialize() error
}

// LocalSDK stands in for the vendor framework when accessories attach over the
// WebSocket transport. It offers a fixed set of service channels.
type LocalSDK struct {
	Channels  []int
	ChannelID int
}

func (s LocalSDK) Initialize() error {
	if !slices.Contains(s.Channels, s.ChannelID) {
		return &UnsupportedError{
			Kind:   DeviceNotSupported,
			Detail: fmt.Sprintf("channel %d is not offered (channels %v)", s.ChannelID, s.Channels),
		}
	}
	return nil
}
