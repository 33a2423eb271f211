package consult

// SyncState 同步器状态
type SyncState int

const (
	StateUninitialized SyncState = iota // 等待初始化标记
	StateInitialized                    // 解析寄存器请求命令
)

func (s SyncState) String() string {
	if s == StateInitialized {
		return "initialized"
	}
	return "uninitialized"
}

// CommandHandler 接收 (0x5A, 命令字节) 对中的命令字节
type CommandHandler interface {
	HandleCommand(cmd byte)
}

// InitHandler 可选: 匹配到初始化标记时被调用
type InitHandler interface {
	HandleInit()
}

// ControlHandler 可选: 处理出现在任何标记对之前的独立 StreamStart / StreamStop 字节。
// 未实现该接口的处理器不会收到控制字节, 这些字节保留在缓冲区中。
type ControlHandler interface {
	HandleControl(ctrl byte)
}

// Synchronizer 在连续、可能被任意分片的字节流中寻找初始化标记,
// 然后逐个解析寄存器请求命令 (模拟 ECU 一侧)。
//
// 每次 Feed 最多分发一个命令; 调用方通过重复调用 Feed(nil) 处理缓冲区中剩余的命令。
// 同步器不是并发安全的, 处理器回调中也不能再调用 Feed。
type Synchronizer struct {
	state   SyncState
	buf     []byte
	handler CommandHandler
	init    InitHandler
	control ControlHandler

	// MaxPending 限制已初始化状态下无命令时保留的字节数, 0 表示不限制
	MaxPending int
}

// NewSynchronizer 创建同步器, 初始状态为 StateUninitialized
func NewSynchronizer(h CommandHandler) *Synchronizer {
	s := &Synchronizer{handler: h}
	if ih, ok := h.(InitHandler); ok {
		s.init = ih
	}
	if ch, ok := h.(ControlHandler); ok {
		s.control = ch
	}
	return s
}

// State 当前状态
func (s *Synchronizer) State() SyncState { return s.state }

// Pending 缓冲区中保留的字节数
func (s *Synchronizer) Pending() int { return len(s.buf) }

// Reset 回到未初始化状态并清空缓冲区
func (s *Synchronizer) Reset() {
	s.state = StateUninitialized
	s.buf = s.buf[:0]
}

// Feed 追加新读取的字节并推进状态机。
// 分发了事件 (初始化、命令或控制字节) 时返回 true。
func (s *Synchronizer) Feed(data []byte) bool {
	s.buf = append(s.buf, data...)

	initialized := false
	if s.state == StateUninitialized {
		found, rest := ScanMatch(s.buf, InitSequence)
		s.retain(rest)
		if !found {
			return false
		}
		s.state = StateInitialized
		initialized = true
		if s.init != nil {
			s.init.HandleInit()
		}
	}

	return s.step() || initialized
}

func (s *Synchronizer) step() bool {
	for i := 0; i < len(s.buf); i++ {
		b := s.buf[i]
		if b == Marker {
			if i+1 >= len(s.buf) {
				// 命令字节尚未到达
				break
			}
			cmd := s.buf[i+1]
			s.retain(s.buf[i+2:])
			s.handler.HandleCommand(cmd)
			return true
		}
		if s.control != nil && (b == StreamStart || b == StreamStop) {
			s.retain(s.buf[i+1:])
			s.control.HandleControl(b)
			return true
		}
	}

	if s.MaxPending > 0 && len(s.buf) > s.MaxPending {
		// 只保留可能是下一个命令开头的标记字节
		if s.buf[len(s.buf)-1] == Marker {
			s.retain(s.buf[len(s.buf)-1:])
		} else {
			s.retain(nil)
		}
	}
	return false
}

// retain 将 rest 移到缓冲区开头, 复用底层数组
func (s *Synchronizer) retain(rest []byte) {
	n := copy(s.buf, rest)
	s.buf = s.buf[:n]
}
