package server

import (
	"context"
	"fmt"

	"github.com/panjf2000/gnet/v2"
	"go.uber.org/zap"

	"consult-gateway/internal/config"
	"consult-gateway/internal/metrics"
	"consult-gateway/internal/protocol/consult"
	ecu "consult-gateway/internal/usecase/consult"
)

// connContext 保存每个连接的状态
type connContext struct {
	ecu  *ecu.MockECU
	addr string
}

// GnetConnWrapper 将 gnet.Conn 适配为 usecase.Conn。
// 数据帧由独立协程发送, 因此写操作统一使用 AsyncWrite。
type GnetConnWrapper struct {
	conn gnet.Conn
	addr string
}

func (w *GnetConnWrapper) RemoteAddr() string {
	return w.addr
}

func (w *GnetConnWrapper) Close() error {
	return w.conn.Close()
}

func (w *GnetConnWrapper) Write(b []byte) (n int, err error) {
	if err := w.conn.AsyncWrite(b, nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

// TCPServer 在 TCP 上模拟 ECU, 每个连接一个 MockECU 会话
type TCPServer struct {
	gnet.BuiltinEventEngine

	addr      string
	multicore bool
	cfg       config.ServerConfig
	cat       *consult.Catalog
	sessions  *ecu.SessionManager
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewTCPServer 创建模拟 ECU 服务。m 可以为 nil。
func NewTCPServer(cfg config.ServerConfig, cat *consult.Catalog, sessions *ecu.SessionManager, m *metrics.Metrics, logger *zap.Logger) *TCPServer {
	return &TCPServer{
		addr:      fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port),
		multicore: cfg.Multicore,
		cfg:       cfg,
		cat:       cat,
		sessions:  sessions,
		metrics:   m,
		logger:    logger,
	}
}

func (s *TCPServer) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.logger.Info("Mock ECU server is booting", zap.String("address", s.addr))
	return
}

func (s *TCPServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	addr := c.RemoteAddr().String()
	s.logger.Info("New connection opened", zap.String("remote_addr", addr))

	wrapper := &GnetConnWrapper{conn: c, addr: addr}
	session := ecu.NewMockECU(wrapper, s.cat, s.cfg.FrameInterval, s.metrics, s.logger)
	c.SetContext(&connContext{ecu: session, addr: addr})
	s.sessions.Add(session, addr)
	return
}

func (s *TCPServer) OnTraffic(c gnet.Conn) (action gnet.Action) {
	ctx, ok := c.Context().(*connContext)
	if !ok {
		return gnet.Close
	}

	buf, _ := c.Next(-1)
	if len(buf) == 0 {
		return
	}
	s.sessions.UpdateLastActive(ctx.ecu.ID)

	// 同步器会复制数据, buf 在返回后可被 gnet 复用
	if err := ctx.ecu.Feed(buf); err != nil {
		s.logger.Warn("Handle traffic failed", zap.Error(err), zap.String("addr", ctx.addr))
		action = gnet.Close
	}
	return
}

func (s *TCPServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	s.logger.Info("Connection closed", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
	if ctx, ok := c.Context().(*connContext); ok {
		s.sessions.Remove(ctx.ecu.ID)
	}
	return
}

func (s *TCPServer) OnShutdown(eng gnet.Engine) {
	s.logger.Info("Mock ECU server is shutting down")
	s.sessions.CloseAll()
}

// Start 阻塞运行直到 Stop 被调用
func (s *TCPServer) Start(ctx context.Context) error {
	s.logger.Info("Starting mock ECU server", zap.String("addr", s.addr))
	return gnet.Run(s, s.addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithLogger(s.logger.Sugar()),
		gnet.WithReusePort(true),
	)
}

func (s *TCPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping mock ECU server...")
	return gnet.Stop(ctx, s.addr)
}
