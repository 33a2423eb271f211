package consult

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRegisterMapping 寄存器表中两个参数映射到同一组物理位 (启动时致命)
	ErrDuplicateRegisterMapping = errors.New("寄存器映射重复")
	// ErrUnknownParameter 参数标识不存在
	ErrUnknownParameter = errors.New("未知参数标识")
	// ErrUnresolvableRegister 寄存器字节无法解析为参数
	ErrUnresolvableRegister = errors.New("无法解析的寄存器字节")
	// ErrFrameTooShort 帧长度不足以读取参数引用的寄存器
	ErrFrameTooShort = errors.New("帧长度不足")
	// ErrTooLarge 帧大小超过上限 (安全检查)
	ErrTooLarge = errors.New("帧过大")
)

// DuplicateRegisterError 描述寄存器表构建时发现的冲突
type DuplicateRegisterError struct {
	Name     string // 冲突的参数
	Existing string // 已占用这组寄存器的参数
	Regs     []byte
	Bit      int // -1 表示非位参数
}

func (e *DuplicateRegisterError) Error() string {
	if e.Bit < 0 {
		return fmt.Sprintf("%v: %q 与 %q 共用寄存器 % X", ErrDuplicateRegisterMapping, e.Name, e.Existing, e.Regs)
	}
	return fmt.Sprintf("%v: %q 与 %q 共用寄存器 % X 位 %d", ErrDuplicateRegisterMapping, e.Name, e.Existing, e.Regs, e.Bit)
}

func (e *DuplicateRegisterError) Unwrap() error { return ErrDuplicateRegisterMapping }

// UnknownParameterError 携带无法解析的参数标识
type UnknownParameterError struct {
	ID ParamID
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnknownParameter, int(e.ID))
}

func (e *UnknownParameterError) Unwrap() error { return ErrUnknownParameter }

// UnresolvableRegisterError 携带无法解析的寄存器字节及其在命令中的位置
type UnresolvableRegisterError struct {
	Register byte
	Index    int
}

func (e *UnresolvableRegisterError) Error() string {
	return fmt.Sprintf("%v: 0x%02X (偏移 %d)", ErrUnresolvableRegister, e.Register, e.Index)
}

func (e *UnresolvableRegisterError) Unwrap() error { return ErrUnresolvableRegister }

// FrameTooShortError 指明越界的参数和寄存器
type FrameTooShortError struct {
	Param    string
	Register byte
	FrameLen int
}

func (e *FrameTooShortError) Error() string {
	return fmt.Sprintf("%v: 参数 %q 需要寄存器 0x%02X, 帧长度 %d", ErrFrameTooShort, e.Param, e.Register, e.FrameLen)
}

func (e *FrameTooShortError) Unwrap() error { return ErrFrameTooShort }
