package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising the peripheral, replacing a previous
// advertisement.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *PeripheralInfo) error {
	txt, err := EncodePeripheralTXT(info)
	if err != nil {
		return err
	}
	instanceName := InstanceName(info.InstanceID)
	if err := ValidateInstanceName(instanceName); err != nil {
		return err
	}

	port := int(info.Port)
	if port == 0 {
		port = transport.DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(txt),
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register peripheral service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the advertisement.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	logger *slog.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser. logger may be nil.
func NewMDNSBrowser(config BrowserConfig, logger *slog.Logger) *MDNSBrowser {
	return &MDNSBrowser{config: config, logger: logger}
}

// BrowsePeripherals searches for peripherals advertising any of the
// capability ids. Services are aggregated by instance name - addresses from
// multiple interfaces are combined into a single entry. A service is
// reported once, when first seen; after all of its addresses were removed
// it is reported again when it reappears.
func (b *MDNSBrowser) BrowsePeripherals(ctx context.Context, capabilityIDs []string) (<-chan *PeripheralService, error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *PeripheralService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	filter := append([]string(nil), capabilityIDs...)

	go func() {
		defer close(out)

		services := make(map[string]*PeripheralService)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc, err := serviceFromRecord(entry.Instance, entry.HostName, entry.Port, entry.Text, entryIPs(entry))
				if err != nil {
					b.debug("ignoring malformed advertisement", "instance", entry.Instance, "error", err)
					continue
				}
				if !MatchesFilter(svc.CapabilityIDs, filter) {
					continue
				}

				if existing, found := services[svc.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entryIPs(entry))
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...); err != nil {
			b.debug("browse ended", "error", err)
		}
	}()

	return out, nil
}

// Browse implements transport.PeerSource. It blocks until ctx is
// cancelled.
func (b *MDNSBrowser) Browse(ctx context.Context, capabilityIDs []string, found func(transport.Peer)) error {
	services, err := b.BrowsePeripherals(ctx, capabilityIDs)
	if err != nil {
		return err
	}
	for svc := range services {
		found(svc.Peer())
	}
	return ctx.Err()
}

// Stop stops all browsing.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func (b *MDNSBrowser) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func entryIPs(entry *zeroconf.ServiceEntry) []net.IP {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	return append(ips, entry.AddrIPv6...)
}

// serviceFromRecord converts the fields of a resolved service entry.
func serviceFromRecord(instance, host string, port int, text []string, ips []net.IP) (*PeripheralService, error) {
	info, err := DecodePeripheralTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}

	return &PeripheralService{
		InstanceName:  instance,
		Host:          host,
		Port:          uint16(port),
		Addresses:     addrs,
		InstanceID:    info.InstanceID,
		Name:          info.Name,
		CapabilityIDs: info.CapabilityIDs,
		Version:       info.Version,
	}, nil
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the given IPs from the address list.
func removeAddresses(addresses []string, ips []net.IP) []string {
	toRemove := make(map[string]bool, len(ips))
	for _, ip := range ips {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)

// Ensure MDNSBrowser implements Browser and transport.PeerSource.
var (
	_ Browser              = (*MDNSBrowser)(nil)
	_ transport.PeerSource = (*MDNSBrowser)(nil)
)
