package db

import (
	"fmt"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet            Feature = 1 << iota // Support for Set operations
	FeatureSetE                               // Support for SetE operations
	FeatureSetEIfUnset                        // Support for SetEIfUnset operations
	FeatureGet                                // Support for Get operations
	FeatureExpire                             // Support for Expire operations
	FeatureDelete                             // Support for Delete operations
	FeatureHas                                // Support for Has operations
	FeatureKeys                               // Support for prefix Keys scans
	FeatureFlush                              // Support for Flush operations
	FeatureSave                               // Support for Save operations
	FeatureLoad                               // Support for Load operations
	FeatureGarbageCollect                     // Support for GarbageCollect operations
)

var featureNames = map[Feature]string{
	FeatureSet:            "Set",
	FeatureSetE:           "SetE",
	FeatureSetEIfUnset:    "SetEIfUnset",
	FeatureGet:            "Get",
	FeatureExpire:         "Expire",
	FeatureDelete:         "Delete",
	FeatureHas:            "Has",
	FeatureKeys:           "Keys",
	FeatureFlush:          "Flush",
	FeatureSave:           "Save",
	FeatureLoad:           "Load",
	FeatureGarbageCollect: "GarbageCollect",
}

func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText encodes a single feature by name
func (f Feature) MarshalText() ([]byte, error) {
	name, ok := featureNames[f]
	if !ok {
		return nil, fmt.Errorf("db: cannot encode feature set %d", uint64(f))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a feature name
func (f *Feature) UnmarshalText(text []byte) error {
	for feature, name := range featureNames {
		if name == string(text) {
			*f = feature
			return nil
		}
	}
	return fmt.Errorf("db: unknown feature %q", text)
}

type DatabaseInfo struct {
	Entries           int            `json:"entries"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for key-value database implementations.
// Lifetimes are wall-clock durations measured from the moment of the write.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry. An existing entry (and its lifetime) is overwritten.
	Set(key string, value []byte)

	// SetE inserts or updates an entry with a lifetime.
	// After expireIn the value is gone but the key is still findable with Has().
	// After deleteIn the key is gone as well.
	// Note: zero means never. expireIn=0 and deleteIn=N behaves like expireIn=N and deleteIn=N.
	SetE(key string, value []byte, expireIn, deleteIn time.Duration)

	// SetEIfUnset behaves like SetE but leaves an existing (not deleted) entry untouched.
	SetEIfUnset(key string, value []byte, expireIn, deleteIn time.Duration)

	// Expire marks the entry with the specified key as expired.
	// The key stays findable with the Has() method.
	Expire(key string)

	// Delete removes an entry with the specified key.
	Delete(key string)

	// Flush removes every entry.
	Flush()

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a (not expired) value for the key was found.
	Get(key string) (value []byte, loaded bool)

	// Has checks whether a key exists in the database.
	// This method returns true even if the value for the key is expired.
	Has(key string) (loaded bool)

	// Keys returns every live key starting with prefix, in no particular order.
	Keys(prefix string) (keys []string)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load restores the database state data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close stops background work of the database. Data stays readable.
	Close() (err error)
}
