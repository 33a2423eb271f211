package consult

import (
	"fmt"
	"math"
)

// Kind 参数寻址方式
type Kind uint8

const (
	KindSingle Kind = iota + 1 // 单寄存器
	KindDual                   // 双寄存器 (MSB, LSB 大端组合)
	KindBit                    // 寄存器中的单个位
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindDual:
		return "dual"
	case KindBit:
		return "bit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Parameter 寄存器表中的一个参数定义。
// Kind 决定哪些字段有效:
//   - KindSingle: Reg
//   - KindDual:   MSB, Reg (LSB)
//   - KindBit:    Reg, Bit
//
// 物理值 = 原始值 * Scale + Offset
type Parameter struct {
	Key    string // 配置文件和消息中使用的稳定标识
	Name   string // 显示名称 (不强制唯一)
	Unit   string
	Kind   Kind
	Reg    byte
	MSB    byte
	Bit    uint8
	Scale  float64
	Offset float64
}

// Single 创建单寄存器参数
func Single(key, name string, reg byte, unit string) Parameter {
	return Parameter{Key: key, Name: name, Unit: unit, Kind: KindSingle, Reg: reg, Scale: 1}
}

// Dual 创建双寄存器参数, msb 为高字节地址, lsb 为低字节地址
func Dual(key, name string, msb, lsb byte, unit string) Parameter {
	return Parameter{Key: key, Name: name, Unit: unit, Kind: KindDual, MSB: msb, Reg: lsb, Scale: 1}
}

// BitFlag 创建位参数
func BitFlag(key, name string, reg byte, bit uint8) Parameter {
	return Parameter{Key: key, Name: name, Kind: KindBit, Reg: reg, Bit: bit, Scale: 1}
}

// WithScale 返回设置了比例系数的副本
func (p Parameter) WithScale(scale float64) Parameter {
	p.Scale = scale
	return p
}

// WithOffset 返回设置了偏移量的副本
func (p Parameter) WithOffset(offset float64) Parameter {
	p.Offset = offset
	return p
}

// Registers 返回参数在线路上的寄存器字节序列: 双寄存器为 MSB, LSB; 其他为单字节
func (p Parameter) Registers() []byte {
	if p.Kind == KindDual {
		return []byte{p.MSB, p.Reg}
	}
	return []byte{p.Reg}
}

// Register 返回用于寻址的规范寄存器字节。双寄存器参数按 LSB 寻址。
func (p Parameter) Register() byte {
	return p.Reg
}

// BitIndex 返回位索引, 非位参数返回 false
func (p Parameter) BitIndex() (uint8, bool) {
	if p.Kind == KindBit {
		return p.Bit, true
	}
	return 0, false
}

// Unscaled 从帧中提取原始值
func (p Parameter) Unscaled(frame []byte) (uint16, error) {
	switch p.Kind {
	case KindSingle:
		if err := p.checkBounds(frame, p.Reg); err != nil {
			return 0, err
		}
		return uint16(frame[p.Reg]), nil
	case KindDual:
		if err := p.checkBounds(frame, p.MSB); err != nil {
			return 0, err
		}
		if err := p.checkBounds(frame, p.Reg); err != nil {
			return 0, err
		}
		return uint16(frame[p.MSB])<<8 | uint16(frame[p.Reg]), nil
	case KindBit:
		if err := p.checkBounds(frame, p.Reg); err != nil {
			return 0, err
		}
		return uint16(frame[p.Reg]>>p.Bit) & 1, nil
	default:
		return 0, fmt.Errorf("参数 %q 寻址方式无效: %v", p.Name, p.Kind)
	}
}

// Value 计算物理值: 原始值 * Scale + Offset
func (p Parameter) Value(frame []byte) (float64, error) {
	raw, err := p.Unscaled(frame)
	if err != nil {
		return 0, err
	}
	return float64(raw)*p.Scale + p.Offset, nil
}

// Encode 将物理值反向换算后写入帧 (模拟 ECU 使用)。
// 超出寄存器范围的值被截断到边界; 位参数非零即置位。
func (p Parameter) Encode(frame []byte, value float64) error {
	if p.Scale == 0 {
		return fmt.Errorf("参数 %q 比例系数为 0, 无法反算", p.Name)
	}
	raw := math.Round((value - p.Offset) / p.Scale)

	switch p.Kind {
	case KindSingle:
		if err := p.checkBounds(frame, p.Reg); err != nil {
			return err
		}
		frame[p.Reg] = byte(clamp(raw, math.MaxUint8))
	case KindDual:
		if err := p.checkBounds(frame, p.MSB); err != nil {
			return err
		}
		if err := p.checkBounds(frame, p.Reg); err != nil {
			return err
		}
		v := uint16(clamp(raw, math.MaxUint16))
		frame[p.MSB] = byte(v >> 8)
		frame[p.Reg] = byte(v)
	case KindBit:
		if err := p.checkBounds(frame, p.Reg); err != nil {
			return err
		}
		if raw != 0 {
			frame[p.Reg] |= 1 << p.Bit
		} else {
			frame[p.Reg] &^= 1 << p.Bit
		}
	default:
		return fmt.Errorf("参数 %q 寻址方式无效: %v", p.Name, p.Kind)
	}
	return nil
}

func (p Parameter) validate() error {
	switch p.Kind {
	case KindSingle:
	case KindDual:
		if p.MSB == p.Reg {
			return fmt.Errorf("参数 %q 高低字节寄存器相同: 0x%02X", p.Name, p.Reg)
		}
	case KindBit:
		if p.Bit > 7 {
			return fmt.Errorf("参数 %q 位索引超出范围: %d", p.Name, p.Bit)
		}
	default:
		return fmt.Errorf("参数 %q 寻址方式无效: %v", p.Name, p.Kind)
	}
	if p.Key == "" {
		return fmt.Errorf("参数 %q 缺少标识", p.Name)
	}
	return nil
}

func (p Parameter) checkBounds(frame []byte, reg byte) error {
	if int(reg) >= len(frame) {
		return &FrameTooShortError{Param: p.Name, Register: reg, FrameLen: len(frame)}
	}
	return nil
}

func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
