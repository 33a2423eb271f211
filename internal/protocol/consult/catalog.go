package consult

import (
	"fmt"
	"sync"
)

// ParamID 参数在寄存器表中的稳定标识 (即表中的下标)
type ParamID int

// Catalog 有序的参数寄存器表, 可按标识、规范寄存器字节和配置键查找。
//
// 成员在构建后不可变; 只有每个参数的启用标志会变化。启用标志由控制层写入,
// 由读取帧的 worker 读取, 使用读写锁保护: 一次解码只取一次快照
// (EnabledIDs / Enabled), 不会读到新旧混合的启用状态。
type Catalog struct {
	params    []Parameter
	byReg     map[byte]ParamID
	byKey     map[string]ParamID
	frameSize int

	mu      sync.RWMutex
	enabled []bool
	count   int
}

// NewCatalog 从参数定义构建寄存器表。
// 构建时立即校验 (寄存器组, 位索引) 的唯一性, 第一个冲突即返回错误。
func NewCatalog(params []Parameter) (*Catalog, error) {
	c := &Catalog{
		params:  make([]Parameter, len(params)),
		byReg:   make(map[byte]ParamID, len(params)),
		byKey:   make(map[string]ParamID, len(params)),
		enabled: make([]bool, len(params)),
	}
	copy(c.params, params)

	owners := make(map[string]int, len(params))
	for i, p := range c.params {
		if err := p.validate(); err != nil {
			return nil, err
		}

		bit := -1
		if b, ok := p.BitIndex(); ok {
			bit = int(b)
		}
		mapping := fmt.Sprintf("%X/%d", p.Registers(), bit)
		if j, dup := owners[mapping]; dup {
			return nil, &DuplicateRegisterError{
				Name:     p.Name,
				Existing: c.params[j].Name,
				Regs:     p.Registers(),
				Bit:      bit,
			}
		}
		owners[mapping] = i

		if _, dup := c.byKey[p.Key]; dup {
			return nil, fmt.Errorf("参数标识重复: %q", p.Key)
		}
		c.byKey[p.Key] = ParamID(i)

		// 多个位参数共用同一寄存器字节时, 表中第一个参数拥有该字节
		if _, taken := c.byReg[p.Register()]; !taken {
			c.byReg[p.Register()] = ParamID(i)
		}

		for _, r := range p.Registers() {
			if int(r)+1 > c.frameSize {
				c.frameSize = int(r) + 1
			}
		}
	}
	return c, nil
}

// NewDefaultCatalog 使用内置寄存器表构建
func NewDefaultCatalog() (*Catalog, error) {
	return NewCatalog(DefaultParameters())
}

// Len 参数个数
func (c *Catalog) Len() int { return len(c.params) }

// FrameSize 帧长度: 从地址 0 到表中最高寄存器地址 (含)
func (c *Catalog) FrameSize() int { return c.frameSize }

// All 按表定义顺序返回全部参数
func (c *Catalog) All() []Parameter {
	out := make([]Parameter, len(c.params))
	copy(out, c.params)
	return out
}

// Lookup 按标识查找参数
func (c *Catalog) Lookup(id ParamID) (Parameter, bool) {
	if id < 0 || int(id) >= len(c.params) {
		return Parameter{}, false
	}
	return c.params[id], true
}

// LookupByRegister 按规范寄存器字节查找。双寄存器参数只能用 LSB 找到。
func (c *Catalog) LookupByRegister(reg byte) (ParamID, bool) {
	id, ok := c.byReg[reg]
	return id, ok
}

// ParseKey 按配置键查找参数标识
func (c *Catalog) ParseKey(key string) (ParamID, bool) {
	id, ok := c.byKey[key]
	return id, ok
}

// Enable 设置参数启用状态。重复设置相同状态不影响计数。
func (c *Catalog) Enable(id ParamID, on bool) error {
	if _, ok := c.Lookup(id); !ok {
		return &UnknownParameterError{ID: id}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(id, on)
	return nil
}

// Select 原子地将启用集合替换为 ids
func (c *Catalog) Select(ids []ParamID) error {
	for _, id := range ids {
		if _, ok := c.Lookup(id); !ok {
			return &UnknownParameterError{ID: id}
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.enabled {
		c.enabled[i] = false
	}
	c.count = 0
	for _, id := range ids {
		c.set(id, true)
	}
	return nil
}

func (c *Catalog) set(id ParamID, on bool) {
	if c.enabled[id] == on {
		return
	}
	c.enabled[id] = on
	if on {
		c.count++
	} else {
		c.count--
	}
}

// IsEnabled 查询单个参数是否启用
func (c *Catalog) IsEnabled(id ParamID) bool {
	if _, ok := c.Lookup(id); !ok {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled[id]
}

// EnabledIDs 返回启用参数标识的快照, 保持表顺序
func (c *Catalog) EnabledIDs() []ParamID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]ParamID, 0, c.count)
	for i, on := range c.enabled {
		if on {
			ids = append(ids, ParamID(i))
		}
	}
	return ids
}

// Enabled 返回启用参数的快照, 保持表顺序
func (c *Catalog) Enabled() []Parameter {
	ids := c.EnabledIDs()
	out := make([]Parameter, len(ids))
	for i, id := range ids {
		out[i] = c.params[id]
	}
	return out
}

// CountEnabled 启用参数个数, 始终等于 len(Enabled())
func (c *Catalog) CountEnabled() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}
