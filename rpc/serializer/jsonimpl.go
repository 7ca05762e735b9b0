package serializer

import (
	"github.com/ValentinKolb/dDoc/rpc/common"
	jsoniter "github.com/json-iterator/go"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{
		api: jsoniter.ConfigCompatibleWithStandardLibrary,
	}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json-iterator
type jsonSerializerImpl struct {
	api jsoniter.API
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(req common.MultiGetRequest) ([]byte, error) {
	return j.api.Marshal(req)
}

func (j jsonSerializerImpl) Deserialize(b []byte, req *common.MultiGetRequest) error {
	return j.api.Unmarshal(b, req)
}

func (j jsonSerializerImpl) ContentType() string {
	return "application/json; charset=utf-8"
}
