package discovery

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/gizmo-config/gizmo-go/pkg/transport"
	"github.com/gizmo-config/gizmo-go/pkg/version"
)

func TestPeripheralTXTRoundTrip(t *testing.T) {
	info := &PeripheralInfo{
		InstanceID:    "0123456789abcdef",
		Name:          "Desk Clock",
		CapabilityIDs: []string{"185C", "185D", "185E", "185F"},
	}

	txt, err := EncodePeripheralTXT(info)
	if err != nil {
		t.Fatalf("EncodePeripheralTXT() error = %v", err)
	}
	if txt[TXTKeyCapabilities] != "185C,185D,185E,185F" {
		t.Errorf("caps = %q", txt[TXTKeyCapabilities])
	}

	got, err := DecodePeripheralTXT(StringsToTXTRecords(TXTRecordsToStrings(txt)))
	if err != nil {
		t.Fatalf("DecodePeripheralTXT() error = %v", err)
	}
	if got.InstanceID != info.InstanceID || got.Name != info.Name {
		t.Errorf("got %+v, want %+v", got, info)
	}
	if strings.Join(got.CapabilityIDs, ",") != strings.Join(info.CapabilityIDs, ",") {
		t.Errorf("CapabilityIDs = %v, want %v", got.CapabilityIDs, info.CapabilityIDs)
	}
	if txt[TXTKeyVersion] != version.Current || got.Version != version.Current {
		t.Errorf("version = %q / %q, want %q", txt[TXTKeyVersion], got.Version, version.Current)
	}
}

func TestPeripheralTXTVersion(t *testing.T) {
	base := TXTRecordMap{"id": "0123456789abcdef", "caps": "185C"}

	got, err := DecodePeripheralTXT(base)
	if err != nil {
		t.Fatalf("unversioned advertisement: %v", err)
	}
	if got.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", got.Version)
	}

	base[TXTKeyVersion] = "1.3"
	if got, err = DecodePeripheralTXT(base); err != nil || got.Version != "1.3" {
		t.Errorf("minor bump: got %v, %v", got, err)
	}

	base[TXTKeyVersion] = "2.0"
	if _, err = DecodePeripheralTXT(base); !errors.Is(err, version.ErrIncompatible) {
		t.Errorf("error = %v, want %v", err, version.ErrIncompatible)
	}

	_, err = EncodePeripheralTXT(&PeripheralInfo{InstanceID: "0123456789abcdef", CapabilityIDs: []string{"1"}, Version: "x"})
	if err == nil {
		t.Error("EncodePeripheralTXT should reject a malformed version")
	}
}

func TestEncodePeripheralTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		info PeripheralInfo
		want error
	}{
		{"bad id", PeripheralInfo{InstanceID: "xyz", CapabilityIDs: []string{"1"}}, ErrInvalidInstanceID},
		{"no caps", PeripheralInfo{InstanceID: "0123456789abcdef"}, ErrNoCapabilities},
		{"comma in cap", PeripheralInfo{InstanceID: "0123456789abcdef", CapabilityIDs: []string{"a,b"}}, ErrInvalidCapability},
		{"empty cap", PeripheralInfo{InstanceID: "0123456789abcdef", CapabilityIDs: []string{""}}, ErrInvalidCapability},
		{"too large", PeripheralInfo{InstanceID: "0123456789abcdef", CapabilityIDs: []string{strings.Repeat("A", 300)}}, ErrTXTRecordTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodePeripheralTXT(&tt.info)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodePeripheralTXT(t *testing.T) {
	tests := []struct {
		name    string
		txt     TXTRecordMap
		want    []string
		wantErr error
	}{
		{"missing id", TXTRecordMap{"caps": "1"}, nil, ErrMissingRequired},
		{"missing caps", TXTRecordMap{"id": "0123456789abcdef"}, nil, ErrMissingRequired},
		{"bad id", TXTRecordMap{"id": "0123", "caps": "1"}, nil, ErrInvalidInstanceID},
		{"empty caps", TXTRecordMap{"id": "0123456789abcdef", "caps": " , "}, nil, ErrNoCapabilities},
		{"trims and dedups", TXTRecordMap{"id": "0123456789ABCDEF", "caps": "185D, 185C,185D"}, []string{"185D", "185C"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePeripheralTXT(tt.txt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got.CapabilityIDs, ",") != strings.Join(tt.want, ",") {
				t.Errorf("CapabilityIDs = %v, want %v", got.CapabilityIDs, tt.want)
			}
			if got.InstanceID != "0123456789abcdef" {
				t.Errorf("InstanceID = %q, want lower case", got.InstanceID)
			}
		})
	}
}

func TestMatchesFilter(t *testing.T) {
	caps := []string{"185C", "185D"}
	tests := []struct {
		filter []string
		want   bool
	}{
		{nil, true},
		{[]string{"185D"}, true},
		{[]string{"181A", "185C"}, true},
		{[]string{"181A"}, false},
	}
	for _, tt := range tests {
		if got := MatchesFilter(caps, tt.filter); got != tt.want {
			t.Errorf("MatchesFilter(%v) = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestInstanceIDFromHardware(t *testing.T) {
	a := InstanceIDFromHardware("AA:BB:CC:DD:EE:FF")
	b := InstanceIDFromHardware("aa-bb-cc-dd-ee-ff")
	if a != b {
		t.Errorf("separators or case changed the id: %s != %s", a, b)
	}
	if !ValidateID(a) {
		t.Errorf("InstanceIDFromHardware() = %q, not a valid id", a)
	}
	if a == InstanceIDFromHardware("AA:BB:CC:DD:EE:00") {
		t.Error("different addresses produced the same id")
	}
}

func TestServiceFromRecord(t *testing.T) {
	text := []string{"id=0123456789abcdef", "caps=185C,185D", "name=Nixie"}
	ips := []net.IP{net.ParseIP("192.168.1.20"), net.ParseIP("fe80::1")}

	svc, err := serviceFromRecord("Gizmo-0123456789abcdef", "clock.local.", 7890, text, ips)
	if err != nil {
		t.Fatalf("serviceFromRecord() error = %v", err)
	}
	if svc.Address() != "192.168.1.20:7890" {
		t.Errorf("Address() = %q", svc.Address())
	}

	peer := svc.Peer()
	want := transport.Peer{
		InstanceID:    "0123456789abcdef",
		Name:          "Nixie",
		Address:       "192.168.1.20:7890",
		CapabilityIDs: []string{"185C", "185D"},
	}
	if peer.InstanceID != want.InstanceID || peer.Name != want.Name || peer.Address != want.Address ||
		strings.Join(peer.CapabilityIDs, ",") != strings.Join(want.CapabilityIDs, ",") {
		t.Errorf("Peer() = %+v, want %+v", peer, want)
	}

	if _, err := serviceFromRecord("x", "h", 1, []string{"caps=1"}, nil); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestServiceAddressFallsBackToHost(t *testing.T) {
	svc := &PeripheralService{Host: "clock.local.", Port: 7890}
	if got := svc.Address(); got != "clock.local.:7890" {
		t.Errorf("Address() = %q", got)
	}
}

func TestAddressAggregation(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "fe80::1"})
	if len(addrs) != 2 {
		t.Fatalf("mergeAddresses() = %v", addrs)
	}
	addrs = removeAddresses(addrs, []net.IP{net.ParseIP("10.0.0.1")})
	if len(addrs) != 1 || addrs[0] != "fe80::1" {
		t.Errorf("removeAddresses() = %v", addrs)
	}
}

func TestInstanceName(t *testing.T) {
	name := InstanceName("0123456789abcdef")
	if name != "Gizmo-0123456789abcdef" {
		t.Errorf("InstanceName() = %q", name)
	}
	if err := ValidateInstanceName(name); err != nil {
		t.Errorf("ValidateInstanceName() error = %v", err)
	}
	if err := ValidateInstanceName(strings.Repeat("x", 64)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("ValidateInstanceName() error = %v", err)
	}
}
