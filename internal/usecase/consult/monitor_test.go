package consult

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"consult-gateway/internal/metrics"
	"consult-gateway/internal/protocol/consult"
	"consult-gateway/internal/usecase"
)

func mustCatalog(t *testing.T) *consult.Catalog {
	t.Helper()
	cat, err := consult.NewDefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

// fakeLink: 监视器写出的数据进入 writes, ECU 侧数据经 pipe 提供给监视器读取
type fakeLink struct {
	pr     *io.PipeReader
	pw     *io.PipeWriter
	writes chan []byte
}

func newFakeLink() *fakeLink {
	pr, pw := io.Pipe()
	return &fakeLink{pr: pr, pw: pw, writes: make(chan []byte, 16)}
}

func (l *fakeLink) Read(p []byte) (int, error) { return l.pr.Read(p) }

func (l *fakeLink) Write(b []byte) (int, error) {
	l.writes <- append([]byte{}, b...)
	return len(b), nil
}

func (l *fakeLink) expectWrite(t *testing.T, want []byte) {
	t.Helper()
	select {
	case got := <-l.writes:
		if !bytes.Equal(got, want) {
			t.Errorf("monitor wrote % X, want % X", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("monitor did not write % X", want)
	}
}

// pipeConn 将 net.Conn 适配为 usecase.Conn
type pipeConn struct{ net.Conn }

func (p pipeConn) RemoteAddr() string { return p.Conn.RemoteAddr().String() }

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []usecase.MQPayload
}

func (d *fakeDispatcher) Dispatch(data interface{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, data.(usecase.MQPayload))
	return true
}

func TestMonitorSession(t *testing.T) {
	cat := mustCatalog(t)
	if err := cat.Select([]consult.ParamID{consult.EngineSpeedHR, consult.CoolantTemp}); err != nil {
		t.Fatal(err)
	}

	link := newFakeLink()
	disp := &fakeDispatcher{}
	m := metrics.New()
	mon := NewMonitor(cat, link, disp, m, zaptest.NewLogger(t), MonitorConfig{Source: "test"})

	var samples []Sample
	mon.OnSample = func(s Sample) { samples = append(samples, s) }

	errc := make(chan error, 1)
	go func() { errc <- mon.Run(context.Background()) }()

	link.expectWrite(t, consult.InitCommand())
	// 初始化响应前的噪声被忽略
	if _, err := link.pw.Write([]byte{0x00, consult.InitResponse}); err != nil {
		t.Fatal(err)
	}
	link.expectWrite(t, []byte{0x5A, 0x01, 0x5A, 0x08, 0xF0})

	frame, err := consult.EncodeFrame(cat, consult.Values{consult.EngineSpeedHR: 6250, consult.CoolantTemp: 90})
	if err != nil {
		t.Fatal(err)
	}
	// 两帧跨越写入边界
	stream := append(append([]byte{}, frame...), frame...)
	for _, chunk := range [][]byte{stream[:10], stream[10:100], stream[100:]} {
		if _, err := link.pw.Write(chunk); err != nil {
			t.Fatal(err)
		}
	}
	link.pw.Close()

	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	link.expectWrite(t, consult.StopCommand())

	if mon.Decoded() != 2 || mon.Failed() != 0 {
		t.Fatalf("decoded = %d, failed = %d", mon.Decoded(), mon.Failed())
	}
	if len(samples) != 2 || samples[1].Seq != 2 {
		t.Fatalf("samples = %+v", samples)
	}
	if samples[0].Values["engine_speed_hr"] != 6250 || samples[0].Values["coolant_temp"] != 90 {
		t.Fatalf("values = %v", samples[0].Values)
	}
	if len(disp.payloads) != 2 || disp.payloads[0].Type != SampleType || disp.payloads[0].Source != "test" {
		t.Fatalf("payloads = %+v", disp.payloads)
	}
	if got := testutil.ToFloat64(m.Parameters.WithLabelValues("engine_speed_hr", "RPM")); got != 6250 {
		t.Fatalf("gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.Handshakes.WithLabelValues("ok")); got != 1 {
		t.Fatalf("handshakes = %v", got)
	}
}

// startSession 运行监视器直到寄存器请求发出
func startSession(t *testing.T, ctx context.Context, mon *Monitor, link *fakeLink) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- mon.Run(ctx) }()

	link.expectWrite(t, consult.InitCommand())
	if _, err := link.pw.Write([]byte{consult.InitResponse}); err != nil {
		t.Fatal(err)
	}
	<-link.writes // 寄存器请求
	return errc
}

func TestMonitorDecodesRequestedSet(t *testing.T) {
	cat := mustCatalog(t)
	if err := cat.Select([]consult.ParamID{consult.TPS}); err != nil {
		t.Fatal(err)
	}
	link := newFakeLink()
	mon := NewMonitor(cat, link, nil, nil, zap.NewNop(), MonitorConfig{})
	var samples []Sample
	mon.OnSample = func(s Sample) { samples = append(samples, s) }

	errc := startSession(t, context.Background(), mon, link)

	// 会话中启用的参数没有被请求, 不能从空字节中解码
	if err := cat.Enable(consult.CoolantTemp, true); err != nil {
		t.Fatal(err)
	}
	frame, err := consult.EncodeFrame(cat, consult.Values{consult.TPS: 40})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := link.pw.Write(frame); err != nil {
		t.Fatal(err)
	}
	link.pw.Close()

	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if len(samples) != 1 {
		t.Fatalf("samples = %d", len(samples))
	}
	if _, ok := samples[0].Values["coolant_temp"]; ok || len(samples[0].Values) != 1 || samples[0].Values["tps"] != 40 {
		t.Fatalf("values = %v", samples[0].Values)
	}
}

func TestMonitorWaitsForStopAck(t *testing.T) {
	tests := []struct {
		name    string
		ack     bool
		timeout time.Duration
		want    string
	}{
		{"acknowledged", true, 2 * time.Second, "Stream stop acknowledged"},
		{"timed out", false, 50 * time.Millisecond, "Stream stop not acknowledged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := mustCatalog(t)
			_ = cat.Enable(consult.TPS, true)
			link := newFakeLink()
			defer link.pw.Close()

			core, logs := observer.New(zap.InfoLevel)
			mon := NewMonitor(cat, link, nil, nil, zap.New(core), MonitorConfig{StopAckTimeout: tt.timeout})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errc := startSession(t, ctx, mon, link)

			cancel()
			link.expectWrite(t, consult.StopCommand())
			if tt.ack {
				// 停止前的残留帧数据之后才是应答
				if _, err := link.pw.Write(make([]byte, 8)); err != nil {
					t.Fatal(err)
				}
				if _, err := link.pw.Write([]byte{consult.StopAck}); err != nil {
					t.Fatal(err)
				}
			}

			select {
			case err := <-errc:
				if err != nil {
					t.Fatal(err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("monitor did not return")
			}
			if n := logs.FilterMessage(tt.want).Len(); n != 1 {
				t.Fatalf("%q logged %d times", tt.want, n)
			}
		})
	}
}

func TestMonitorRejectsEmptySelection(t *testing.T) {
	mon := NewMonitor(mustCatalog(t), newFakeLink(), nil, nil, zap.NewNop(), MonitorConfig{})
	if err := mon.Run(context.Background()); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestMonitorHandshakeTimeout(t *testing.T) {
	cat := mustCatalog(t)
	_ = cat.Enable(consult.TPS, true)
	link := newFakeLink()
	defer link.pw.Close()

	m := metrics.New()
	mon := NewMonitor(cat, link, nil, m, zap.NewNop(), MonitorConfig{HandshakeTimeout: 20 * time.Millisecond})
	if err := mon.Run(context.Background()); !errors.Is(err, ErrHandshakeTimeout) {
		t.Fatalf("expected ErrHandshakeTimeout, got %v", err)
	}
	if got := testutil.ToFloat64(m.Handshakes.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeouts = %v", got)
	}
}

func TestMonitorLinkClosedDuringHandshake(t *testing.T) {
	cat := mustCatalog(t)
	_ = cat.Enable(consult.TPS, true)
	link := newFakeLink()
	link.pw.CloseWithError(io.ErrUnexpectedEOF)

	mon := NewMonitor(cat, link, nil, nil, zap.NewNop(), MonitorConfig{})
	if err := mon.Run(context.Background()); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped link error, got %v", err)
	}
}

func TestMonitorSkipsUndecodableFrames(t *testing.T) {
	cat := mustCatalog(t)
	if err := cat.Select([]consult.ParamID{consult.CoolantTemp, consult.IAT}); err != nil {
		t.Fatal(err)
	}
	link := newFakeLink()
	m := metrics.New()
	// 帧长度 0x10 不包含 IAT (0x11), 每一帧都解码失败
	mon := NewMonitor(cat, link, nil, m, zap.NewNop(), MonitorConfig{FrameSize: 0x10})

	errc := make(chan error, 1)
	go func() { errc <- mon.Run(context.Background()) }()

	link.expectWrite(t, consult.InitCommand())
	link.pw.Write([]byte{consult.InitResponse})
	<-link.writes // 寄存器请求
	link.pw.Write(make([]byte, 0x10*3))
	link.pw.Close()

	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if mon.Failed() != 3 || mon.Decoded() != 0 {
		t.Fatalf("decoded = %d, failed = %d", mon.Decoded(), mon.Failed())
	}
	if got := testutil.ToFloat64(m.Frames.WithLabelValues("failed")); got != 3 {
		t.Fatalf("failed frames metric = %v", got)
	}
}

func TestMonitorAgainstMockECU(t *testing.T) {
	cat := mustCatalog(t)
	if err := cat.Select([]consult.ParamID{consult.EngineSpeedHR, consult.TPS, consult.ACOn}); err != nil {
		t.Fatal(err)
	}

	monitorSide, ecuSide := net.Pipe()
	ecu := NewMockECU(pipeConn{ecuSide}, mustCatalog(t), 2*time.Millisecond, nil, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 64)
		for {
			n, err := ecuSide.Read(buf)
			if err != nil {
				return
			}
			_ = ecu.Feed(buf[:n])
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := NewMonitor(cat, monitorSide, nil, nil, zap.NewNop(), MonitorConfig{Source: "pipe"})
	var samples []Sample
	mon.OnSample = func(s Sample) {
		samples = append(samples, s)
		if len(samples) == 3 {
			cancel()
		}
	}

	if err := mon.Run(ctx); err != nil {
		t.Fatal(err)
	}
	monitorSide.Close()
	ecuSide.Close()
	wg.Wait()
	ecu.Close()

	if len(samples) != 3 {
		t.Fatalf("samples = %d", len(samples))
	}
	for _, s := range samples {
		if len(s.Values) != 3 {
			t.Fatalf("values = %v", s.Values)
		}
		if ac := s.Values["ac_on"]; ac != 0 && ac != 1 {
			t.Fatalf("ac_on = %v", ac)
		}
	}
}
