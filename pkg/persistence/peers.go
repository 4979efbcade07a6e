package persistence

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"
)

// PeerState contains the peripherals the configurator was told about
// explicitly.
type PeerState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Peers are the remembered peripherals ordered by instance id.
	Peers []PeerRecord `json:"peers,omitempty"`
}

// PeerRecord describes a remembered peripheral.
type PeerRecord struct {
	// InstanceID identifies the peripheral.
	InstanceID string `json:"instance_id"`

	// Name is the peripheral's display name.
	Name string `json:"name,omitempty"`

	// Address is the host:port of the peripheral.
	Address string `json:"address"`

	// CapabilityIDs are the advertised capability ids.
	CapabilityIDs []string `json:"capability_ids"`

	// LastSeenAt is when the peripheral was last connected.
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`
}

// PeerStore manages persistence of remembered peripherals to a JSON file.
type PeerStore struct {
	mu   sync.Mutex
	path string
}

// NewPeerStore creates a new peer store.
func NewPeerStore(path string) *PeerStore {
	return &PeerStore{path: path}
}

// Save persists the peer state to disk.
func (s *PeerStore) Save(state *PeerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}
	sort.Slice(state.Peers, func(i, j int) bool {
		return state.Peers[i].InstanceID < state.Peers[j].InstanceID
	})

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(s.path, data)
}

// Load reads the peer state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *PeerStore) Load() (*PeerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &PeerState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Upsert adds or replaces a peer record and saves the state.
func (s *PeerStore) Upsert(rec PeerRecord) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	if state == nil {
		state = &PeerState{}
	}

	replaced := false
	for i := range state.Peers {
		if state.Peers[i].InstanceID == rec.InstanceID {
			state.Peers[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		state.Peers = append(state.Peers, rec)
	}
	state.SavedAt = time.Time{}
	return s.Save(state)
}

// Clear removes the state file.
func (s *PeerStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path)
}
