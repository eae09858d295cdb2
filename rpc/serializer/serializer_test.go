package serializer

import (
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/kvorm/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
	"CBOR": NewCBORSerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request
		{
			MsgType: common.MsgTKVSet,
			Key:     "book_%&_Oliver Twist",
			Value:   []byte("test-value"),
		},

		// Batched write
		{
			MsgType:  common.MsgTKVMSetE,
			Keys:     []string{"book_%&_1", "author_%&_1"},
			Values:   [][]byte{[]byte("a"), []byte("b")},
			DeleteIn: 5 * time.Minute,
		},

		// Batched read response
		{
			MsgType: common.MsgTKVMGet,
			Values:  [][]byte{[]byte("a"), []byte("b")},
			Oks:     []bool{true, true},
		},

		// Error response with a store code
		{
			MsgType: common.MsgTKVSet,
			Err:     "Set operation is not supported",
			Code:    2,
		},

		// Message with all fields filled
		{
			MsgType:  common.MsgTLCKAcquire,
			Key:      "test-lock-key",
			Keys:     []string{"a"},
			ExpireIn: time.Second,
			DeleteIn: time.Minute,
			Value:    []byte("test-lock-value"),
			Values:   [][]byte{[]byte("v")},
			Ok:       true,
			Oks:      []bool{true, false},
			Meta:     []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err = serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTLCKRelease; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err = serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType, result.MsgType)
				}
			}
		})
	}
}

// TestCBORDeterministic tests that equal messages always produce equal bytes
func TestCBORDeterministic(t *testing.T) {
	serializer := NewCBORSerializer()
	msg := testMessages()[len(testMessages())-1]

	first, err := serializer.Serialize(msg)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := serializer.Serialize(msg)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Encoding is not deterministic")
		}
	}
}

// TestInvalidData tests how the serializers handle corrupt data
func TestInvalidData(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var msg common.Message
			if err := factory().Deserialize([]byte{0x05, 0x01}, &msg); err == nil {
				t.Errorf("Expected error for corrupt data")
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("Expected serializer %q, got %q", name, s.Name())
		}
	}
	if s, err := New(""); err != nil || s.Name() != DefaultName {
		t.Errorf("Expected empty name to select %q", DefaultName)
	}
	if _, err := New("binary"); err == nil {
		t.Errorf("Expected unknown serializer to fail")
	}
}
