// Package profile maps session ids to durable browser-profile directories.
//
// A session id is "<base>||<profile>" where profile is base64url without
// padding, so any profile name (empty, unicode, path separators) round-trips
// and the id stays filesystem-safe once mapped through DirName. Directory
// names are capped at MaxDirNameBytes, which limits a profile name on a
// minted id to MaxNameBytes.
package profile

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

const (
	separator    = "||"
	dirPrefix    = "session_"
	rawDirPrefix = "raw_"
	dirSep       = "."
	baseIDLen    = 36 // canonical uuid text
)

const (
	// MaxDirNameBytes is the common filesystem limit on one path element.
	MaxDirNameBytes = 255
	// MaxNameBytes is the longest profile name a minted session id can carry.
	MaxNameBytes = (MaxDirNameBytes - len(dirPrefix) - baseIDLen - len(dirSep)) * 6 / 8
)

var enc = base64.RawURLEncoding

// NewBaseID returns a fresh random base identifier.
func NewBaseID() string {
	return uuid.NewString()
}

// Encode joins a base id and a profile name into a session id.
func Encode(baseID, profileName string) string {
	return baseID + separator + enc.EncodeToString([]byte(profileName))
}

// Decode splits a session id into its base id and profile name. Malformed
// input never fails: it degrades to (id, "", false).
func Decode(id string) (baseID, profileName string, ok bool) {
	i := strings.LastIndex(id, separator)
	if i < 0 {
		return id, "", false
	}
	raw, err := enc.DecodeString(id[i+len(separator):])
	if err != nil {
		return id, "", false
	}
	return id[:i], string(raw), true
}

// NewSessionID mints a session id for profileName.
func NewSessionID(profileName string) string {
	return Encode(NewBaseID(), profileName)
}

// ProfileName returns the profile encoded in id, or id itself when the id
// carries no decodable profile.
func ProfileName(id string) string {
	if _, name, ok := Decode(id); ok {
		return name
	}
	return id
}

// DirName maps a session id to its profile directory name.
func DirName(id string) string {
	base, name, ok := Decode(id)
	if !ok || !safeBase(base) {
		return rawDirPrefix + enc.EncodeToString([]byte(id))
	}
	return dirPrefix + base + dirSep + enc.EncodeToString([]byte(name))
}

// Fits reports whether id maps to a directory name within MaxDirNameBytes.
func Fits(id string) bool {
	return len(DirName(id)) <= MaxDirNameBytes
}

// SessionIDFromDir reverses DirName. It reports false for directory names
// that were not produced by DirName.
func SessionIDFromDir(dir string) (string, bool) {
	if rest, found := strings.CutPrefix(dir, rawDirPrefix); found {
		raw, err := enc.DecodeString(rest)
		if err != nil || len(raw) == 0 {
			return "", false
		}
		return string(raw), true
	}

	rest, found := strings.CutPrefix(dir, dirPrefix)
	if !found {
		return "", false
	}
	i := strings.LastIndex(rest, dirSep)
	if i <= 0 || !safeBase(rest[:i]) {
		return "", false
	}
	name, err := enc.DecodeString(rest[i+len(dirSep):])
	if err != nil {
		return "", false
	}
	return Encode(rest[:i], string(name)), true
}

// safeBase reports whether a base id can appear verbatim in a directory name.
func safeBase(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
