package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/kvorm/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key      string        `json:"key,omitempty"`      // Used for: Set, Get, Has, Expire, Scan (prefix), Acquire, Release
	Keys     []string      `json:"keys,omitempty"`     // Used for: MSetE, MGet, Delete, Scan (response)
	ExpireIn time.Duration `json:"expireIn,omitempty"` // Used for: Set operations
	DeleteIn time.Duration `json:"deleteIn,omitempty"` // Used for: Set, Acquire operations
	Value    []byte        `json:"value,omitempty"`    // Used for: Set (request), Get (response), Acquire (response)
	Values   [][]byte      `json:"values,omitempty"`   // Used for: MSetE (request), MGet (response)

	// Response only fields
	Ok   bool    `json:"ok,omitempty"`   // Used for: Get, Has, Acquire, Release responses
	Oks  []bool  `json:"oks,omitempty"`  // Used for: MGet responses
	Err  string  `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
	Code RetCode `json:"code,omitempty"` // Return code of a store error, zero otherwise

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info (json encoded db.DatabaseInfo)
}

// RetCode mirrors store.RetCode on the wire
type RetCode = store.RetCode

// AsError returns the error carried by a response, nil if there is none.
// Store errors keep their return code.
func (m *Message) AsError() error {
	if m.MsgType != MsgTError && m.Err == "" {
		return nil
	}
	if m.Code != store.RetCSuccess {
		return store.NewError(m.Code, m.Err)
	}
	return errors.New(m.Err)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewResponse creates a response of type t carrying err (if any)
func NewResponse(t MessageType, err error) *Message {
	msg := &Message{MsgType: t}
	if err != nil {
		msg.Err = err.Error()
		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			msg.Code = storeErr.Code
			msg.Err = storeErr.Msg
		}
	}
	return msg
}

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{MsgType: MsgTKVSet, Key: key, Value: value}
}

// NewSetERequest creates a new SetE request
func NewSetERequest(key string, value []byte, expireIn, deleteIn time.Duration) *Message {
	return &Message{MsgType: MsgTKVSetE, Key: key, Value: value, ExpireIn: expireIn, DeleteIn: deleteIn}
}

// NewSetEIfUnsetRequest creates a new SetEIfUnset request
func NewSetEIfUnsetRequest(key string, value []byte, expireIn, deleteIn time.Duration) *Message {
	return &Message{MsgType: MsgTKVSetEIfUnset, Key: key, Value: value, ExpireIn: expireIn, DeleteIn: deleteIn}
}

// NewMSetERequest creates a new MSetE request, keys and values are sent as parallel lists
func NewMSetERequest(entries []store.KeyValue, expireIn, deleteIn time.Duration) *Message {
	msg := &Message{
		MsgType:  MsgTKVMSetE,
		Keys:     make([]string, len(entries)),
		Values:   make([][]byte, len(entries)),
		ExpireIn: expireIn,
		DeleteIn: deleteIn,
	}
	for i, e := range entries {
		msg.Keys[i] = e.Key
		msg.Values[i] = e.Value
	}
	return msg
}

// NewExpireRequest creates a new Expire request
func NewExpireRequest(key string) *Message {
	return &Message{MsgType: MsgTKVExpire, Key: key}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(keys []string) *Message {
	return &Message{MsgType: MsgTKVDelete, Keys: keys}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{MsgType: MsgTKVGet, Key: key}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := NewResponse(MsgTKVGet, err)
	msg.Value, msg.Ok = value, ok
	return msg
}

// NewMGetRequest creates a new MGet request
func NewMGetRequest(keys []string) *Message {
	return &Message{MsgType: MsgTKVMGet, Keys: keys}
}

// NewMGetResponse creates a new MGet response
func NewMGetResponse(values [][]byte, found []bool, err error) *Message {
	msg := NewResponse(MsgTKVMGet, err)
	msg.Values, msg.Oks = values, found
	return msg
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{MsgType: MsgTKVHas, Key: key}
}

// NewHasResponse creates a new Has response
func NewHasResponse(ok bool, err error) *Message {
	msg := NewResponse(MsgTKVHas, err)
	msg.Ok = ok
	return msg
}

// NewScanRequest creates a new Scan request
func NewScanRequest(prefix string) *Message {
	return &Message{MsgType: MsgTKVScan, Key: prefix}
}

// NewScanResponse creates a new Scan response
func NewScanResponse(keys []string, err error) *Message {
	msg := NewResponse(MsgTKVScan, err)
	msg.Keys = keys
	return msg
}

// NewFlushRequest creates a new FlushAll request
func NewFlushRequest() *Message {
	return &Message{MsgType: MsgTKVFlush}
}

// NewInfoRequest creates a new GetDBInfo request
func NewInfoRequest() *Message {
	return &Message{MsgType: MsgTKVInfo}
}

// NewInfoResponse creates a new GetDBInfo response
func NewInfoResponse(info []byte, err error) *Message {
	msg := NewResponse(MsgTKVInfo, err)
	msg.Meta = info
	return msg
}

// NewAcquireRequest creates a new Acquire request
func NewAcquireRequest(key string, deleteIn time.Duration) *Message {
	return &Message{MsgType: MsgTLCKAcquire, Key: key, DeleteIn: deleteIn}
}

// NewAcquireResponse creates a new Acquire response
func NewAcquireResponse(ok bool, value []byte, err error) *Message {
	msg := NewResponse(MsgTLCKAcquire, err)
	msg.Ok, msg.Value = ok, value
	return msg
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(key string, ownerId []byte) *Message {
	return &Message{MsgType: MsgTLCKRelease, Key: key, Value: ownerId}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	msg := NewResponse(MsgTLCKRelease, err)
	msg.Ok = ok
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTKVSet         // Set a key-value pair
	MsgTKVSetE        // Set a key-value pair with a lifetime
	MsgTKVSetEIfUnset // Set a key-value pair if not already set
	MsgTKVMSetE       // Set many key-value pairs with a lifetime
	MsgTKVExpire      // Expire a key
	MsgTKVDelete      // Delete keys
	MsgTKVGet         // Get a value by key
	MsgTKVMGet        // Get many values by key
	MsgTKVHas         // Check if a key exists
	MsgTKVScan        // List keys by prefix
	MsgTKVFlush       // Remove all keys
	MsgTKVInfo        // Database info

	// ILockManager operations

	MsgTLCKAcquire // Acquire a lock
	MsgTLCKRelease // Release a lock
)

var messageTypeNames = map[MessageType]string{
	MsgTUnknown:       "unknown",
	MsgTSuccess:       "success",
	MsgTError:         "error",
	MsgTKVSet:         "set",
	MsgTKVSetE:        "setE",
	MsgTKVSetEIfUnset: "setEIfUnset",
	MsgTKVMSetE:       "msetE",
	MsgTKVExpire:      "expire",
	MsgTKVDelete:      "delete",
	MsgTKVGet:         "get",
	MsgTKVMGet:        "mget",
	MsgTKVHas:         "has",
	MsgTKVScan:        "scan",
	MsgTKVFlush:       "flush",
	MsgTKVInfo:        "info",
	MsgTLCKAcquire:    "acquire",
	MsgTLCKRelease:    "release",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes a MessageType as its name
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a MessageType from its name
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}
