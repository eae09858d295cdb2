package serializer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/kvorm/rpc/common"
)

// DefaultName is the serializer used when none is configured
const DefaultName = "cbor"

// IRPCSerializer converts Messages to and from their wire form.
// Client and server of a connection must use the same serializer.
type IRPCSerializer interface {
	// Name returns the name New accepts for this serializer
	Name() string
	// Serialize encodes msg
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg
	Deserialize(b []byte, msg *common.Message) error
}

var constructors = map[string]func() IRPCSerializer{
	"json": NewJSONSerializer,
	"gob":  NewGOBSerializer,
	"cbor": NewCBORSerializer,
}

// Names returns the names accepted by New
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the serializer registered under name, an empty name selects DefaultName
func New(name string) (IRPCSerializer, error) {
	if name == "" {
		name = DefaultName
	}
	newSerializer, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown serializer: %s (must be one of %s)", name, strings.Join(Names(), ", "))
	}
	return newSerializer(), nil
}
