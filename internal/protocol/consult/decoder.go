package consult

// Values 一帧解码结果: 参数标识 -> 物理值
type Values map[ParamID]float64

// Decoder 将一帧原始寄存器字节解码为启用参数的物理值
type Decoder struct {
	cat *Catalog
}

// NewDecoder 创建帧解码器
func NewDecoder(cat *Catalog) *Decoder {
	return &Decoder{cat: cat}
}

// Decode 解码当前启用的全部参数。启用集合在开始时取一次快照。
// 任一参数越界则整帧失败, 不填充默认值。
func (d *Decoder) Decode(frame []byte) (Values, error) {
	return d.DecodeIDs(frame, d.cat.EnabledIDs())
}

// DecodeIDs 按给定的参数标识解码
func (d *Decoder) DecodeIDs(frame []byte, ids []ParamID) (Values, error) {
	values := make(Values, len(ids))
	for _, id := range ids {
		p, ok := d.cat.Lookup(id)
		if !ok {
			return nil, &UnknownParameterError{ID: id}
		}
		v, err := p.Value(frame)
		if err != nil {
			return nil, err
		}
		values[id] = v
	}
	return values, nil
}

// EncodeFrame 构建一帧: 将 values 中的物理值写入对应寄存器, 其余字节为 0
func EncodeFrame(cat *Catalog, values Values) ([]byte, error) {
	frame := make([]byte, cat.FrameSize())
	for id, v := range values {
		p, ok := cat.Lookup(id)
		if !ok {
			return nil, &UnknownParameterError{ID: id}
		}
		if err := p.Encode(frame, v); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
