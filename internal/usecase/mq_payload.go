package usecase

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MQPayload 包装发布到消息队列的数据, 增加类型、来源和消息标识
type MQPayload struct {
	Type   string      `json:"type"`
	Source string      `json:"source"`
	ID     string      `json:"id"`
	Data   interface{} `json:"data"`
}

// NewPayload 创建带随机消息标识的载荷
func NewPayload(typ, source string, data interface{}) MQPayload {
	return MQPayload{
		Type:   typ,
		Source: source,
		ID:     uuid.NewString(),
		Data:   data,
	}
}

// MarshalJSON 在 data 为对象时注入 msgType 和 source 字段, 方便下游只读取 data
func (p MQPayload) MarshalJSON() ([]byte, error) {
	dataBytes, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}

	var dataMap map[string]interface{}
	if err := json.Unmarshal(dataBytes, &dataMap); err != nil || dataMap == nil {
		// 非对象数据原样输出
		type alias MQPayload
		return json.Marshal(alias(p))
	}
	dataMap["msgType"] = p.Type
	dataMap["source"] = p.Source

	return json.Marshal(&struct {
		Type   string                 `json:"type"`
		Source string                 `json:"source"`
		ID     string                 `json:"id"`
		Data   map[string]interface{} `json:"data"`
	}{
		Type:   p.Type,
		Source: p.Source,
		ID:     p.ID,
		Data:   dataMap,
	})
}
