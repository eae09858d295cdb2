package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/kvorm/rpc/common"
)

// NewJSONSerializer creates a serializer producing human-readable messages,
// useful when debugging the wire with curl
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

func (jsonSerializerImpl) Name() string { return "json" }

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json serializer: %w", err)
	}
	return b, nil
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json serializer: %w", err)
	}
	return nil
}
