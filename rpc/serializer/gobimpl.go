package serializer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/ValentinKolb/kvorm/rpc/common"
)

// NewGOBSerializer creates a serializer using Go's gob format.
// Every message is a self-contained gob stream including its type information.
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

type gobSerializerImpl struct {
	buffers sync.Pool
}

func (g *gobSerializerImpl) Name() string { return "gob" }

func (g *gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	buf, _ := g.buffers.Get().(*bytes.Buffer)
	if buf == nil {
		buf = new(bytes.Buffer)
	}
	defer func() {
		buf.Reset()
		g.buffers.Put(buf)
	}()

	if err := gob.NewEncoder(buf).Encode(msg); err != nil {
		return nil, fmt.Errorf("gob serializer: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (g *gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(msg); err != nil {
		return fmt.Errorf("gob serializer: %w", err)
	}
	return nil
}
