package consult

import (
	"bytes"
)

// ScanMatch 在 buf 中查找 needle 的第一次完整出现。
//
// 找到时返回 (true, 匹配之后的所有字节)。
// 未找到时返回 buf 末尾可能成为下一次匹配开头的字节: 在最后 len(needle)-1
// 个字节中, 从第一个等于 needle[0] 的字节开始的尾部; 没有则返回空。
// 调用方只需保留返回的剩余字节, 与后续读取的数据拼接后再次调用。
func ScanMatch(buf, needle []byte) (bool, []byte) {
	if len(needle) == 0 {
		return true, buf
	}

	if idx := bytes.Index(buf, needle); idx >= 0 {
		return true, buf[idx+len(needle):]
	}

	// 仅保留最后 len(needle)-1 个字节中的候选
	window := len(needle) - 1
	start := len(buf) - window
	if start < 0 {
		start = 0
	}
	if i := bytes.IndexByte(buf[start:], needle[0]); i >= 0 {
		return false, buf[start+i:]
	}
	return false, buf[len(buf):]
}

// FrameScanner 为 bufio.Scanner 提供按固定帧长切分数据流的 Split 函数
type FrameScanner struct {
	frameSize    int
	maxFrameSize int
}

// NewFrameScanner 创建切分器。
// maxFrameSize 限制帧大小以防止错误配置导致的内存占用 (例如 bufio.MaxScanTokenSize)。
func NewFrameScanner(frameSize, maxFrameSize int) *FrameScanner {
	return &FrameScanner{frameSize: frameSize, maxFrameSize: maxFrameSize}
}

// SplitFunc 每次返回一个完整帧。EOF 时不完整的帧被丢弃。
func (fs *FrameScanner) SplitFunc(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if fs.frameSize <= 0 || fs.frameSize > fs.maxFrameSize {
		return 0, nil, ErrTooLarge
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if len(data) < fs.frameSize {
		if atEOF {
			// EOF 时帧不完整, 丢弃
			return len(data), nil, nil
		}
		// 需要更多数据
		return 0, nil, nil
	}

	return fs.frameSize, data[:fs.frameSize], nil
}
