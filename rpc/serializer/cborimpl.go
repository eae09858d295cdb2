package serializer

import (
	"fmt"

	"github.com/ValentinKolb/kvorm/rpc/common"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode sorts map keys, so equal messages encode to equal bytes
var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// NewCBORSerializer creates a serializer using deterministic CBOR encoding
func NewCBORSerializer() IRPCSerializer {
	return cborSerializerImpl{}
}

type cborSerializerImpl struct{}

func (cborSerializerImpl) Name() string { return "cbor" }

func (cborSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := cborEncMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("cbor serializer: %w", err)
	}
	return b, nil
}

func (cborSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := cbor.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("cbor serializer: %w", err)
	}
	return nil
}
