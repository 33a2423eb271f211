package client

import (
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"consult-gateway/internal/config"
	"consult-gateway/internal/protocol/consult"
)

// Link 到 ECU 的字节链路
type Link interface {
	io.ReadWriteCloser
}

// Open 按配置打开链路, 返回链路和用于日志/消息的名称
func Open(cfg config.LinkConfig, logger *zap.Logger) (Link, string, error) {
	switch cfg.Type {
	case config.LinkSerial:
		port, err := OpenSerial(cfg.Device, cfg.BaudRate, cfg.ReadTimeout)
		if err != nil {
			return nil, "", err
		}
		logger.Info("Serial link opened", zap.String("device", cfg.Device), zap.Int("baud", baudOrDefault(cfg.BaudRate)))
		return port, cfg.Device, nil
	case config.LinkTCP:
		conn, err := net.DialTimeout("tcp", cfg.Address, cfg.HandshakeTimeout)
		if err != nil {
			return nil, "", fmt.Errorf("连接 %s 失败: %w", cfg.Address, err)
		}
		logger.Info("TCP link opened", zap.String("address", cfg.Address))
		return conn, "tcp://" + cfg.Address, nil
	default:
		return nil, "", fmt.Errorf("不支持的链路类型: %q", cfg.Type)
	}
}

// OpenSerial 以 8N1、无流控打开串口。baud 为 0 时使用 Consult 默认波特率。
// readTimeout 大于 0 时读操作超时返回 0 字节, 调用方需继续读取。
func OpenSerial(device string, baud int, readTimeout time.Duration) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudOrDefault(baud),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("打开串口 %s 失败: %w", device, err)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("设置串口读超时失败: %w", err)
		}
	}
	return port, nil
}

func baudOrDefault(baud int) int {
	if baud <= 0 {
		return consult.BaudRate
	}
	return baud
}
