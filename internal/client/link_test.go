package client

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"consult-gateway/internal/config"
)

func TestOpenTCPLink(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	link, name, err := Open(config.LinkConfig{Type: config.LinkTCP, Address: l.Addr().String(), HandshakeTimeout: time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer link.Close()
	if name != "tcp://"+l.Addr().String() {
		t.Fatalf("name = %q", name)
	}

	peer := <-accepted
	defer peer.Close()
	if _, err := link.Write([]byte{0xFF, 0xFF, 0xEF}); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 3)
	if _, err := io.ReadFull(peer, buf); err != nil {
		t.Fatal(err)
	}
	if buf[2] != 0xEF {
		t.Fatalf("peer read % X", buf)
	}
}

func TestOpenRejectsUnknownLinkType(t *testing.T) {
	_, _, err := Open(config.LinkConfig{Type: "can"}, zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "can") {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenSerialMissingDevice(t *testing.T) {
	if _, err := OpenSerial("/dev/does-not-exist-consult", 0, 0); err == nil {
		t.Fatal("expected error opening a missing device")
	}
}

func TestBaudOrDefault(t *testing.T) {
	if baudOrDefault(0) != 9600 || baudOrDefault(19200) != 19200 {
		t.Fatal("unexpected baud rate")
	}
}
