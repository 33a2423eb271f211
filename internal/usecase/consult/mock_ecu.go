package consult

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consult-gateway/internal/metrics"
	"consult-gateway/internal/protocol/consult"
	"consult-gateway/internal/usecase"
)

const defaultFrameInterval = 100 * time.Millisecond

// MockECU 模拟 ECU 一侧的会话: 由同步器驱动, 响应初始化, 记录请求的寄存器,
// 收到 StreamStart 后按固定间隔发送模拟帧。
type MockECU struct {
	ID string

	conn     usecase.Conn
	cat      *consult.Catalog
	syncer   *consult.Synchronizer
	sim      *Simulator
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu        sync.Mutex
	requested []byte
	stop      chan struct{}
	done      chan struct{}
}

// NewMockECU 为一个连接创建模拟 ECU 会话。m 可以为 nil。
func NewMockECU(conn usecase.Conn, cat *consult.Catalog, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *MockECU {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	id := uuid.NewString()
	e := &MockECU{
		ID:       id,
		conn:     conn,
		cat:      cat,
		sim:      NewSimulator(cat),
		interval: interval,
		metrics:  m,
		logger:   logger.With(zap.String("session", id), zap.String("remote_addr", conn.RemoteAddr())),
	}
	e.syncer = consult.NewSynchronizer(e)
	e.syncer.MaxPending = 4096
	return e
}

// Feed 处理从连接读到的字节, 依次分发缓冲区中所有完整的命令
func (e *MockECU) Feed(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic in MockECU.Feed",
				zap.Any("recover", r),
				zap.String("stack", string(debug.Stack())))
			err = fmt.Errorf("internal server error: %v", r)
		}
	}()

	if e.syncer.Feed(data) {
		for e.syncer.Feed(nil) {
		}
	}
	return nil
}

// HandleInit 回复初始化响应
func (e *MockECU) HandleInit() {
	e.count("init")
	e.logger.Info("Init sequence received")
	e.write([]byte{consult.InitResponse})
}

// HandleCommand 记录请求的寄存器字节, 无法识别的寄存器被忽略
func (e *MockECU) HandleCommand(reg byte) {
	id, ok := e.cat.LookupByRegister(reg)
	if !ok {
		e.count("unknown")
		e.logger.Warn("Unknown register requested", zap.Uint8("register", reg))
		return
	}
	e.count("register")

	e.mu.Lock()
	e.requested = append(e.requested, reg)
	e.mu.Unlock()
	e.logger.Debug("Register requested", zap.Uint8("register", reg), zap.Int("param", int(id)))
}

// HandleControl 处理 StreamStart / StreamStop
func (e *MockECU) HandleControl(ctrl byte) {
	e.count("control")
	switch ctrl {
	case consult.StreamStart:
		e.startStream()
	case consult.StreamStop:
		e.stopStream()
		e.mu.Lock()
		e.requested = nil
		e.mu.Unlock()
		e.write([]byte{consult.StopAck})
		e.logger.Info("Stream stopped")
	}
}

// Requested 当前请求的寄存器字节 (副本)
func (e *MockECU) Requested() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]byte, len(e.requested))
	copy(out, e.requested)
	return out
}

// Streaming 是否正在发送数据帧
func (e *MockECU) Streaming() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stop != nil
}

// Close 停止发送并释放会话
func (e *MockECU) Close() {
	e.stopStream()
}

func (e *MockECU) startStream() {
	e.mu.Lock()
	if e.stop != nil {
		e.mu.Unlock()
		return
	}
	if len(e.requested) == 0 {
		e.mu.Unlock()
		e.logger.Warn("Stream start without requested registers")
		return
	}
	regs := make([]byte, len(e.requested))
	copy(regs, e.requested)
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	stop, done := e.stop, e.done
	e.mu.Unlock()

	e.logger.Info("Stream started", zap.Int("registers", len(regs)), zap.Duration("interval", e.interval))
	go e.streamLoop(regs, stop, done)
}

func (e *MockECU) stopStream() {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (e *MockECU) streamLoop(regs []byte, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, err := e.sim.NextRegisters(regs)
			if err != nil {
				e.logger.Error("Failed to build frame", zap.Error(err))
				return
			}
			if !e.write(frame) {
				return
			}
		}
	}
}

func (e *MockECU) write(b []byte) bool {
	if _, err := e.conn.Write(b); err != nil {
		e.logger.Warn("Write failed", zap.Error(err))
		return false
	}
	return true
}

func (e *MockECU) count(kind string) {
	if e.metrics != nil {
		e.metrics.Commands.WithLabelValues(kind).Inc()
	}
}
