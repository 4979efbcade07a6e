package discovery

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// Service type constants for mDNS.
const (
	// ServiceType is the service type advertised by peripherals.
	ServiceType = "_gizmo._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// InstancePrefix prefixes every instance name.
	InstancePrefix = "Gizmo-"
)

// TXT record key constants.
const (
	TXTKeyInstanceID   = "id"   // Instance id (16 hex chars)
	TXTKeyCapabilities = "caps" // Capability ids (comma-separated)
	TXTKeyName         = "name" // Display name (optional)
	TXTKeyVersion      = "pv"   // Link protocol version (optional, 1.0 when absent)
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for one-shot browsing.
	BrowseTimeout = 5 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTStringLen is the limit of a single TXT string.
	MaxTXTStringLen = 255

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400

	// IDLength is the length of an instance id (16 hex chars = 64 bits).
	IDLength = 16
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidInstanceID   = errors.New("invalid instance id")
	ErrInvalidCapability   = errors.New("invalid capability id")
	ErrNoCapabilities      = errors.New("no capability ids")
	ErrTXTRecordTooLarge   = errors.New("TXT record exceeds size limit")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
)

// PeripheralInfo is what a peripheral advertises.
type PeripheralInfo struct {
	// InstanceID identifies the peripheral (16 hex chars).
	InstanceID string

	// Name is the display name (optional).
	Name string

	// Port is the link port.
	Port uint16

	// CapabilityIDs are the advertised capability ids.
	CapabilityIDs []string

	// Version is the link protocol version. Empty advertises
	// version.Current.
	Version string
}

// PeripheralService is a discovered peripheral.
type PeripheralService struct {
	InstanceName  string
	Host          string
	Port          uint16
	Addresses     []string
	InstanceID    string
	Name          string
	CapabilityIDs []string
	Version       string
}

// Address returns a dialable host:port, preferring the first resolved
// address over the host name.
func (s *PeripheralService) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// Peer converts the service into a transport peer.
func (s *PeripheralService) Peer() transport.Peer {
	caps := make([]string, len(s.CapabilityIDs))
	copy(caps, s.CapabilityIDs)
	return transport.Peer{
		InstanceID:    s.InstanceID,
		Name:          s.Name,
		Address:       s.Address(),
		CapabilityIDs: caps,
	}
}

// Advertiser advertises a peripheral.
type Advertiser interface {
	// Advertise starts (or replaces) the advertisement.
	Advertise(ctx context.Context, info *PeripheralInfo) error

	// Stop withdraws the advertisement.
	Stop() error
}

// Browser finds peripherals.
type Browser interface {
	// BrowsePeripherals reports every peripheral advertising at least one
	// of capabilityIDs; an empty filter reports all peripherals. The
	// channel is closed when ctx is cancelled.
	BrowsePeripherals(ctx context.Context, capabilityIDs []string) (<-chan *PeripheralService, error)

	// Stop stops all browsing.
	Stop()
}

// AdvertiserConfig configures an advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	Interface string

	// TTL for advertised records. Zero uses the library default.
	TTL time.Duration
}

// BrowserConfig configures a browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string
}

// DefaultAdvertiserConfig returns an advertiser config using all interfaces.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: 120 * time.Second}
}

// DefaultBrowserConfig returns a browser config using all interfaces.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{}
}
