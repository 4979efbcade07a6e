package discovery

import (
	"fmt"
	"strings"

	"github.com/gizmo-config/gizmo-go/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodePeripheralTXT creates TXT records for a peripheral advertisement.
func EncodePeripheralTXT(info *PeripheralInfo) (TXTRecordMap, error) {
	if !ValidateID(info.InstanceID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInstanceID, info.InstanceID)
	}
	if len(info.CapabilityIDs) == 0 {
		return nil, ErrNoCapabilities
	}
	for _, id := range info.CapabilityIDs {
		if err := ValidateCapabilityID(id); err != nil {
			return nil, err
		}
	}

	pv := info.Version
	if pv == "" {
		pv = version.Current
	}
	if _, err := version.Parse(pv); err != nil {
		return nil, err
	}

	txt := make(TXTRecordMap)
	txt[TXTKeyInstanceID] = info.InstanceID
	txt[TXTKeyVersion] = pv
	txt[TXTKeyCapabilities] = strings.Join(info.CapabilityIDs, ",")
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}

	size := 0
	for k, v := range txt {
		n := len(k) + 1 + len(v)
		if n > MaxTXTStringLen {
			return nil, fmt.Errorf("%w: %s", ErrTXTRecordTooLarge, k)
		}
		size += n + 1
	}
	if size > MaxTXTRecordSize {
		return nil, ErrTXTRecordTooLarge
	}
	return txt, nil
}

// DecodePeripheralTXT parses TXT records of a peripheral advertisement.
func DecodePeripheralTXT(txt TXTRecordMap) (*PeripheralInfo, error) {
	info := &PeripheralInfo{}

	id, ok := txt[TXTKeyInstanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyInstanceID)
	}
	if !ValidateID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInstanceID, id)
	}
	info.InstanceID = strings.ToLower(id)

	caps, ok := txt[TXTKeyCapabilities]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyCapabilities)
	}
	var err error
	info.CapabilityIDs, err = parseCapabilities(caps)
	if err != nil {
		return nil, err
	}

	v, err := version.Check(txt[TXTKeyVersion])
	if err != nil {
		return nil, err
	}
	info.Version = v.String()

	info.Name = txt[TXTKeyName]
	return info, nil
}

// parseCapabilities splits a comma-separated capability list. Surrounding
// whitespace is trimmed and duplicates are kept in advertised order only
// once.
func parseCapabilities(s string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if err := ValidateCapabilityID(id); err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, ErrNoCapabilities
	}
	return out, nil
}

// ValidateCapabilityID rejects ids that cannot be carried in the caps list.
func ValidateCapabilityID(id string) error {
	if id == "" || strings.ContainsAny(id, ", =") {
		return fmt.Errorf("%w: %q", ErrInvalidCapability, id)
	}
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// InstanceName returns the DNS-SD instance name for an instance id.
func InstanceName(instanceID string) string {
	return InstancePrefix + instanceID
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// MatchesFilter reports whether caps contains at least one id of filter.
// An empty filter matches everything.
func MatchesFilter(caps, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(filter))
	for _, id := range filter {
		want[id] = struct{}{}
	}
	for _, id := range caps {
		if _, ok := want[id]; ok {
			return true
		}
	}
	return false
}
