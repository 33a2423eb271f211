package consult

// ParamsToCommand 将参数标识列表编码为寄存器请求命令: (0x5A 寄存器)* 0xF0。
// 输出顺序与输入一致, 不去重。
func ParamsToCommand(cat *Catalog, ids []ParamID) ([]byte, error) {
	cmd := make([]byte, 0, len(ids)*2+1)
	for _, id := range ids {
		p, ok := cat.Lookup(id)
		if !ok {
			return nil, &UnknownParameterError{ID: id}
		}
		cmd = append(cmd, Marker, p.Register())
	}
	cmd = append(cmd, StreamStart)
	return cmd, nil
}

// CommandToParams 将寄存器请求命令解析为参数列表。
// 跳过标记字节, 遇到 StreamStart 即停止; 其余字节按规范寄存器地址查找。
func CommandToParams(cat *Catalog, cmd []byte) ([]Parameter, error) {
	ids, err := CommandToIDs(cat, cmd)
	if err != nil {
		return nil, err
	}
	params := make([]Parameter, len(ids))
	for i, id := range ids {
		params[i], _ = cat.Lookup(id)
	}
	return params, nil
}

// CommandToIDs 与 CommandToParams 相同, 但返回参数标识
func CommandToIDs(cat *Catalog, cmd []byte) ([]ParamID, error) {
	var ids []ParamID
	for i, b := range cmd {
		switch b {
		case Marker:
			continue
		case StreamStart:
			return ids, nil
		}
		id, ok := cat.LookupByRegister(b)
		if !ok {
			return nil, &UnresolvableRegisterError{Register: b, Index: i}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
