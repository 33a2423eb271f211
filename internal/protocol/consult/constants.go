package consult

// Consult 协议常量定义
const (
	InitResponse byte = 0x10 // ECU 对初始化的应答
	Marker       byte = 0x5A // 每个请求寄存器字节前的标记
	StreamStart  byte = 0xF0 // 结束寄存器请求并开始数据流
	StreamStop   byte = 0x30 // 停止数据流
	StopAck      byte = 0xCF // ECU 对停止命令的应答

	// BaudRate ECU 串口固定波特率 (8N1, 无流控)
	BaudRate = 9600
)

// InitSequence 初始化标记 (3 字节)
var InitSequence = []byte{0xFF, 0xFF, 0xEF}

// InitCommand 返回初始化命令的副本，避免调用方修改 InitSequence
func InitCommand() []byte {
	out := make([]byte, len(InitSequence))
	copy(out, InitSequence)
	return out
}

// StopCommand 返回停止数据流命令
func StopCommand() []byte {
	return []byte{StreamStop}
}
