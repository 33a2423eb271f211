package consult

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"consult-gateway/internal/metrics"
)

// Session 代表一个模拟 ECU 连接会话
type Session struct {
	ECU            *MockECU
	RemoteAddr     string
	LastActiveTime time.Time // 最后活跃时间
	OpenTime       time.Time
}

// SessionManager 管理模拟 ECU 会话, 以会话 ID 为键
type SessionManager struct {
	sessions sync.Map // map[string]*Session
	mu       sync.Mutex
	count    int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewSessionManager 创建一个新的会话管理器。m 可以为 nil。
func NewSessionManager(m *metrics.Metrics, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		metrics: m,
		logger:  logger,
	}
}

// Add 登记会话
func (sm *SessionManager) Add(ecu *MockECU, remoteAddr string) {
	now := time.Now()
	session := &Session{
		ECU:            ecu,
		RemoteAddr:     remoteAddr,
		LastActiveTime: now,
		OpenTime:       now,
	}
	if _, loaded := sm.sessions.LoadOrStore(ecu.ID, session); loaded {
		return
	}
	sm.adjust(1)
	sm.logger.Info("[SessionManager] Session Added", zap.String("session", ecu.ID), zap.String("remote_addr", remoteAddr))
}

// Remove 删除会话并停止其数据流
func (sm *SessionManager) Remove(id string) {
	if val, ok := sm.sessions.LoadAndDelete(id); ok {
		sess := val.(*Session)
		sess.ECU.Close()
		sm.adjust(-1)
		sm.logger.Info("[SessionManager] Session Removed",
			zap.String("session", id),
			zap.Duration("duration", time.Since(sess.OpenTime)))
	}
}

// Get 获取会话
func (sm *SessionManager) Get(id string) (*Session, bool) {
	val, ok := sm.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// Count 当前会话数
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.count
}

// UpdateLastActive 更新会话的活跃时间
func (sm *SessionManager) UpdateLastActive(id string) {
	if val, ok := sm.sessions.Load(id); ok {
		sess := val.(*Session)
		sm.mu.Lock()
		sess.LastActiveTime = time.Now()
		sm.mu.Unlock()
	}
}

// CheckIdle 关闭超过 timeout 未收到数据且未在发送数据帧的会话, 返回关闭的数量
func (sm *SessionManager) CheckIdle(timeout time.Duration) int {
	now := time.Now()
	closed := 0
	sm.sessions.Range(func(key, value interface{}) bool {
		sess := value.(*Session)
		sm.mu.Lock()
		idle := now.Sub(sess.LastActiveTime)
		sm.mu.Unlock()
		if idle > timeout && !sess.ECU.Streaming() {
			sm.logger.Info("[SessionManager] Session Timeout", zap.String("session", sess.ECU.ID), zap.Duration("inactive_duration", idle))
			sm.Remove(sess.ECU.ID)
			_ = sess.ECU.conn.Close()
			closed++
		}
		return true // 继续遍历
	})
	return closed
}

// CloseAll 关闭全部会话
func (sm *SessionManager) CloseAll() {
	sm.sessions.Range(func(key, value interface{}) bool {
		sm.Remove(key.(string))
		return true
	})
}

func (sm *SessionManager) adjust(delta int) {
	sm.mu.Lock()
	sm.count += delta
	n := sm.count
	sm.mu.Unlock()
	if sm.metrics != nil {
		sm.metrics.Sessions.Set(float64(n))
	}
}
