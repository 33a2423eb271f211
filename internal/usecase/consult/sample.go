package consult

import (
	"errors"
	"time"

	"consult-gateway/internal/protocol/consult"
)

const SampleType = "consult_sample"

var (
	ErrHandshakeTimeout = errors.New("等待 ECU 初始化响应超时")
	ErrEmptySelection   = errors.New("未选择任何参数")
)

// Sample 一帧解码后的数据, Values 以参数 key 为键
type Sample struct {
	Seq    uint64             `json:"seq"`
	Time   time.Time          `json:"time"`
	Values map[string]float64 `json:"values"`
}

func newSample(cat *consult.Catalog, seq uint64, at time.Time, values consult.Values) Sample {
	s := Sample{Seq: seq, Time: at, Values: make(map[string]float64, len(values))}
	for id, v := range values {
		if p, ok := cat.Lookup(id); ok {
			s.Values[p.Key] = v
		}
	}
	return s
}
