package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	profileFileSuffix  = ".json"
	defaultPointerFile = "default"
)

// ErrNotFound is returned when a profile id does not exist in the store.
var ErrNotFound = errors.New("profile not found")

var identifierPattern = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Store persists network profiles as one JSON file per profile inside a
// configuration directory. It is safe for use from a single process only;
// concurrent mutation from multiple processes is not protected.
type Store struct {
	dir string // Directory holding one file per profile
}

// New creates a Store rooted at the default configuration directory under
// the current user's home (~/.netident/networks).
// Returns a pointer to the newly created Store.
func New() *Store {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Store{
		dir: filepath.Join(home, ".netident", "networks"),
	}
}

// NewWithDir creates a Store rooted at a custom directory.
// This is useful for testing or non-standard deployments.
// Returns a pointer to the newly created Store.
func NewWithDir(dir string) *Store {
	return &Store{
		dir: dir,
	}
}

// Dir returns the configuration directory backing this store.
func (s *Store) Dir() string {
	return s.dir
}

// Save persists a profile and returns its identifier.
//
// If name is non-empty it is sanitized to the identifier alphabet and used as
// the base id; otherwise the base id is derived from the profile as
// "ssid_mode". Either way, collisions with existing ids are resolved by
// appending "_1", "_2", … until an unused id is found, so Save never clobbers
// an existing profile. Use Overwrite to intentionally replace a record.
func (s *Store) Save(name string, profile *NetworkProfile) (string, error) {
	if err := s.validate(profile); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	base := name
	if base == "" {
		base = profile.SSID + "_" + profile.Mode.String()
	}
	id := s.nextFreeID(sanitizeIdentifier(base))

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	if err := s.writeProfile(id, profile); err != nil {
		return "", err
	}
	return id, nil
}

// Overwrite persists a profile under the exact (sanitized) id, replacing any
// existing record with that id. This is the deliberate-replacement path and
// performs no collision resolution.
func (s *Store) Overwrite(id string, profile *NetworkProfile) (string, error) {
	if err := s.validate(profile); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("profile id cannot be empty")
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	id = sanitizeIdentifier(id)
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	if err := s.writeProfile(id, profile); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) validate(profile *NetworkProfile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if profile.SSID == "" {
		return fmt.Errorf("profile SSID cannot be empty")
	}
	if !profile.Mode.IsValid() {
		return fmt.Errorf("invalid network mode: %q", profile.Mode)
	}
	return nil
}

// Load retrieves a profile by id.
// Returns ErrNotFound if no profile with that id exists.
func (s *Store) Load(id string) (*NetworkProfile, error) {
	data, err := os.ReadFile(s.profilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", id, err)
	}

	var profile NetworkProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", id, err)
	}
	return &profile, nil
}

// Delete removes a profile by id.
// Returns ErrNotFound if no profile with that id exists.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.profilePath(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// List returns all stored profiles sorted by id.
// Files that cannot be read or parsed are skipped rather than failing the
// whole listing, so one corrupt entry never hides the rest.
func (s *Store) List() ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var entries []Entry
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), profileFileSuffix) {
			continue
		}
		id := strings.TrimSuffix(file.Name(), profileFileSuffix)
		profile, err := s.Load(id)
		if err != nil {
			// Skip malformed entries; they are diagnosable on disk.
			continue
		}
		entries = append(entries, Entry{ID: id, Profile: *profile})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Touch updates a profile's LastUsedAt timestamp to now.
// Returns ErrNotFound if no profile with that id exists.
func (s *Store) Touch(id string) error {
	profile, err := s.Load(id)
	if err != nil {
		return err
	}
	profile.LastUsedAt = time.Now()
	return s.writeProfile(id, profile)
}

// SetDefault records which profile id should be activated at boot.
// Returns ErrNotFound if no profile with that id exists.
func (s *Store) SetDefault(id string) error {
	if _, err := s.Load(id); err != nil {
		return err
	}
	path := filepath.Join(s.dir, defaultPointerFile)
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write default pointer: %w", err)
	}
	return nil
}

// DefaultID returns the profile id named by the default pointer file,
// or an empty string when no default has been set.
func (s *Store) DefaultID() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, defaultPointerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read default pointer: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Deduplicate removes redundant profiles that describe the same network.
//
// Profiles are grouped by (ssid, mode); in every group with more than one
// member only the profile with the greatest CreatedAt survives. When two
// profiles share the same timestamp the one with the lexicographically
// smallest id is kept, so repeated runs are deterministic.
// Returns the ids of the profiles that were removed.
func (s *Store) Deduplicate() ([]string, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]Entry)
	for _, entry := range entries {
		key := entry.Profile.SSID + "\x00" + entry.Profile.Mode.String()
		groups[key] = append(groups[key], entry)
	}

	var removed []string
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		survivor := pickNewest(group)
		for _, entry := range group {
			if entry.ID == survivor {
				continue
			}
			if err := s.Delete(entry.ID); err != nil {
				return removed, fmt.Errorf("failed to delete duplicate %s: %w", entry.ID, err)
			}
			removed = append(removed, entry.ID)
		}
	}

	sort.Strings(removed)
	return removed, nil
}

// pickNewest returns the id of the group member with the greatest CreatedAt,
// breaking timestamp ties with the lexicographically smallest id.
func pickNewest(group []Entry) string {
	best := group[0]
	for _, entry := range group[1:] {
		switch {
		case entry.Profile.CreatedAt.After(best.Profile.CreatedAt):
			best = entry
		case entry.Profile.CreatedAt.Equal(best.Profile.CreatedAt) && entry.ID < best.ID:
			best = entry
		}
	}
	return best.ID
}

func (s *Store) profilePath(id string) string {
	return filepath.Join(s.dir, id+profileFileSuffix)
}

func (s *Store) writeProfile(id string, profile *NetworkProfile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", id, err)
	}
	if err := os.WriteFile(s.profilePath(id), data, 0600); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", id, err)
	}
	return nil
}

// nextFreeID appends "_1", "_2", … to the base id until an id is found that
// is not already present in the store.
func (s *Store) nextFreeID(base string) string {
	if !s.exists(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !s.exists(candidate) {
			return candidate
		}
	}
}

func (s *Store) exists(id string) bool {
	_, err := os.Stat(s.profilePath(id))
	return err == nil
}

// sanitizeIdentifier reduces a name to the safe identifier alphabet
// [A-Za-z0-9_-], collapsing runs of other characters into single underscores.
func sanitizeIdentifier(name string) string {
	id := identifierPattern.ReplaceAllString(name, "_")
	id = strings.Trim(id, "_")
	if id == "" {
		return "network"
	}
	return id
}
