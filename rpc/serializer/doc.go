// Package serializer converts rpc messages to bytes and back.
//
// Implementations:
//
//   - cborSerializerImpl: deterministic CBOR (RFC 8949 core encoding). Compact
//     and the default of the cli.
//
//   - jsonSerializerImpl: human-readable, useful for debugging with curl.
//
//   - gobSerializerImpl: Go's gob encoding. Works, but produces the largest
//     payloads because every message carries its type description.
//
// All serializers are stateless (or immutable) and safe for concurrent use.
//
// Usage:
//
//	s, err := serializer.New("cbor")
//	data, err := s.Serialize(message)
//	var received common.Message
//	err = s.Deserialize(data, &received)
package serializer
