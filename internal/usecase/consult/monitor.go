package consult

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"consult-gateway/internal/metrics"
	"consult-gateway/internal/protocol/consult"
	"consult-gateway/internal/usecase"
)

const (
	defaultHandshakeTimeout = 3 * time.Second
	defaultStopAckTimeout   = time.Second
)

// MonitorConfig 采集会话配置
type MonitorConfig struct {
	Source           string        // 链路名称, 写入消息的 source 字段
	HandshakeTimeout time.Duration // 0 使用默认值
	FrameSize        int           // 0 使用寄存器表的帧长度
	StopAckTimeout   time.Duration // 等待停止应答的时间, 0 使用默认值
}

// Monitor 客户端一侧的采集会话: 初始化握手, 发送寄存器请求, 按帧解码并投递
type Monitor struct {
	cat        *consult.Catalog
	dec        *consult.Decoder
	link       io.ReadWriter
	dispatcher usecase.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	cfg        MonitorConfig

	// OnSample 可选, 在读帧协程中同步调用
	OnSample func(Sample)

	seq     uint64
	decoded atomic.Uint64
	failed  atomic.Uint64
}

// NewMonitor 创建采集会话。dispatcher 和 m 可以为 nil。
func NewMonitor(cat *consult.Catalog, link io.ReadWriter, dispatcher usecase.Dispatcher, m *metrics.Metrics, logger *zap.Logger, cfg MonitorConfig) *Monitor {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.StopAckTimeout <= 0 {
		cfg.StopAckTimeout = defaultStopAckTimeout
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = cat.FrameSize()
	}
	return &Monitor{
		cat:        cat,
		dec:        consult.NewDecoder(cat),
		link:       link,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.With(zap.String("source", cfg.Source)),
		cfg:        cfg,
	}
}

// Decoded 成功解码的帧数
func (m *Monitor) Decoded() uint64 { return m.decoded.Load() }

// Failed 解码失败的帧数
func (m *Monitor) Failed() uint64 { return m.failed.Load() }

// Run 执行一次完整的采集会话, 直到 ctx 取消或链路读取结束。
// ctx 取消时向 ECU 发送停止命令并返回 nil。
// 只解码开始时请求的参数; 会话期间对启用集合的修改在下一次 Run 生效。
func (m *Monitor) Run(ctx context.Context) error {
	ids := m.cat.EnabledIDs()
	if len(ids) == 0 {
		return ErrEmptySelection
	}
	cmd, err := consult.ParamsToCommand(m.cat, ids)
	if err != nil {
		return fmt.Errorf("构建寄存器请求失败: %w", err)
	}

	// 读协程的生命周期覆盖停止应答, 不随 ctx 结束
	srcCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := newChunkSource(srcCtx, m.link)

	if err := m.handshake(ctx, src); err != nil {
		return err
	}

	m.logger.Info("Requesting registers", zap.Int("params", len(ids)), zap.String("command", hex.EncodeToString(cmd)))
	if _, err := m.link.Write(cmd); err != nil {
		return fmt.Errorf("发送寄存器请求失败: %w", err)
	}

	err = m.stream(ctx, src, ids)

	if _, werr := m.link.Write(consult.StopCommand()); werr != nil {
		m.logger.Warn("Failed to send stream stop", zap.Error(werr))
	} else if m.awaitStopAck(src) {
		m.logger.Info("Stream stop acknowledged")
	} else {
		m.logger.Warn("Stream stop not acknowledged", zap.Duration("timeout", m.cfg.StopAckTimeout))
	}
	m.logger.Info("Monitor stopped", zap.Uint64("decoded", m.Decoded()), zap.Uint64("failed", m.Failed()))
	return err
}

func (m *Monitor) handshake(ctx context.Context, src *chunkSource) error {
	if _, err := m.link.Write(consult.InitCommand()); err != nil {
		m.countHandshake("error")
		return fmt.Errorf("发送初始化命令失败: %w", err)
	}

	timer := time.NewTimer(m.cfg.HandshakeTimeout)
	defer timer.Stop()

	response := []byte{consult.InitResponse}
	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			m.countHandshake("timeout")
			return ErrHandshakeTimeout
		case chunk, ok := <-src.chunks:
			if !ok {
				m.countHandshake("error")
				return fmt.Errorf("等待初始化响应时链路关闭: %w", src.Err())
			}
			buf = append(buf, chunk...)
			found, rest := consult.ScanMatch(buf, response)
			if found {
				if len(rest) > 0 {
					m.logger.Debug("Discarding bytes after init response", zap.Int("bytes", len(rest)))
				}
				m.countHandshake("ok")
				m.logger.Info("ECU initialized")
				return nil
			}
			buf = rest
		}
	}
}

func (m *Monitor) stream(ctx context.Context, src *chunkSource, ids []consult.ParamID) error {
	sc := bufio.NewScanner(src.readerFor(ctx))
	sc.Buffer(make([]byte, 0, 4*m.cfg.FrameSize), 4*m.cfg.FrameSize)
	sc.Split(consult.NewFrameScanner(m.cfg.FrameSize, 1024).SplitFunc)

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		m.handleFrame(sc.Bytes(), ids)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("读取数据帧失败: %w", err)
	}
	return nil
}

// awaitStopAck 在限定时间内等待以 StopAck 结尾的数据, 停止前已发出的数据帧被丢弃
func (m *Monitor) awaitStopAck(src *chunkSource) bool {
	timer := time.NewTimer(m.cfg.StopAckTimeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return false
		case chunk, ok := <-src.chunks:
			if !ok {
				return false
			}
			if len(chunk) > 0 && chunk[len(chunk)-1] == consult.StopAck {
				return true
			}
		}
	}
}

func (m *Monitor) handleFrame(frame []byte, ids []consult.ParamID) {
	values, err := m.dec.DecodeIDs(frame, ids)
	if err != nil {
		m.failed.Add(1)
		if m.metrics != nil {
			m.metrics.Frames.WithLabelValues("failed").Inc()
		}
		m.logger.Warn("Frame decode failed", zap.Error(err), zap.String("raw_hex", hex.EncodeToString(frame)))
		return
	}

	m.decoded.Add(1)
	m.seq++
	now := time.Now()
	sample := newSample(m.cat, m.seq, now, values)

	if m.metrics != nil {
		m.metrics.Frames.WithLabelValues("decoded").Inc()
		m.metrics.LastFrameTS.Set(float64(now.Unix()))
		for id, v := range values {
			p, _ := m.cat.Lookup(id)
			m.metrics.Parameters.WithLabelValues(p.Key, p.Unit).Set(v)
		}
	}
	if m.dispatcher != nil {
		m.dispatcher.Dispatch(usecase.NewPayload(SampleType, m.cfg.Source, sample))
	}
	if m.OnSample != nil {
		m.OnSample(sample)
	}
}

func (m *Monitor) countHandshake(result string) {
	if m.metrics != nil {
		m.metrics.Handshakes.WithLabelValues(result).Inc()
	}
}

// chunkSource 在独立协程中读取链路, 使握手超时和 ctx 取消不依赖链路自身的读超时。
// ctx 只控制读协程; 单次读取的取消由 readerFor 的 ctx 控制。
type chunkSource struct {
	ctx     context.Context
	chunks  chan []byte
	pending []byte
	err     atomic.Pointer[error]
}

func newChunkSource(ctx context.Context, r io.Reader) *chunkSource {
	s := &chunkSource{ctx: ctx, chunks: make(chan []byte, 16)}
	go s.pump(r)
	return s
}

func (s *chunkSource) pump(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.ctx.Done():
				return
			}
		}
		if err != nil {
			s.err.Store(&err)
			return
		}
	}
}

// Err 读协程结束的原因, 正常结束为 io.EOF
func (s *chunkSource) Err() error {
	if err := s.err.Load(); err != nil {
		return *err
	}
	return io.EOF
}

// readerFor 返回在 ctx 结束后报告 io.EOF 的读取视图
func (s *chunkSource) readerFor(ctx context.Context) io.Reader {
	return &ctxReader{src: s, ctx: ctx}
}

type ctxReader struct {
	src *chunkSource
	ctx context.Context
}

func (r *ctxReader) Read(p []byte) (int, error) {
	return r.src.read(r.ctx, p)
}

func (s *chunkSource) read(ctx context.Context, p []byte) (int, error) {
	for len(s.pending) == 0 {
		select {
		case <-ctx.Done():
			return 0, io.EOF
		case <-s.ctx.Done():
			return 0, io.EOF
		case chunk, ok := <-s.chunks:
			if !ok {
				return 0, s.Err()
			}
			s.pending = chunk
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}
