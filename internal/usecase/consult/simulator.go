package consult

import (
	"math"

	"consult-gateway/internal/protocol/consult"
)

// Simulator 为模拟 ECU 生成缓慢变化的寄存器数据
type Simulator struct {
	cat  *consult.Catalog
	tick uint64
}

func NewSimulator(cat *consult.Catalog) *Simulator {
	return &Simulator{cat: cat}
}

// NextRegisters 生成下一帧, 填充寄存器组包含 regs 中任一字节的全部参数。
// 共用寄存器字节的位参数都会被填充, 与真实 ECU 返回整个寄存器字节一致。
func (s *Simulator) NextRegisters(regs []byte) ([]byte, error) {
	return s.Next(s.paramsFor(regs))
}

func (s *Simulator) paramsFor(regs []byte) []consult.ParamID {
	var want [256]bool
	for _, r := range regs {
		want[r] = true
	}
	var ids []consult.ParamID
	for i, p := range s.cat.All() {
		for _, r := range p.Registers() {
			if want[r] {
				ids = append(ids, consult.ParamID(i))
				break
			}
		}
	}
	return ids
}

// Next 生成下一帧, 只填充 ids 对应的寄存器, 其余字节为 0
func (s *Simulator) Next(ids []consult.ParamID) ([]byte, error) {
	values := make(consult.Values, len(ids))
	for _, id := range ids {
		p, ok := s.cat.Lookup(id)
		if !ok {
			return nil, &consult.UnknownParameterError{ID: id}
		}
		values[id] = simulatedValue(p, id, s.tick)
	}
	s.tick++
	return consult.EncodeFrame(s.cat, values)
}

// simulatedValue 在原始值空间内做正弦变化, 再换算为物理值
func simulatedValue(p consult.Parameter, id consult.ParamID, tick uint64) float64 {
	phase := float64(tick)*0.1 + float64(id)
	var raw float64
	switch p.Kind {
	case consult.KindBit:
		if (tick/10+uint64(id))%2 == 0 {
			raw = 1
		}
	case consult.KindDual:
		raw = math.Round(400 + 300*math.Sin(phase))
	default:
		raw = math.Round(128 + 100*math.Sin(phase))
	}
	return raw*p.Scale + p.Offset
}
