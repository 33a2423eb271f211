package consult

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestParamsToCommandMatchesCapturedSample(t *testing.T) {
	cat := mustDefaultCatalog(t)

	// 取自真实 ECU 的请求样本
	sample := []byte{
		0x5A, 0x0B, 0x5A, 0x01, 0x5A, 0x08, 0x5A, 0x0C, 0x5A, 0x0D, 0x5A, 0x03,
		0x5A, 0x05, 0x5A, 0x09, 0x5A, 0x16, 0x5A, 0x17, 0x5A, 0x1A, 0x5A, 0x1C, 0xF0,
	}
	ids := []ParamID{
		VehicleSpeed, EngineSpeedHR, CoolantTemp, BatteryVoltage, TPS, EngineSpeedLR,
		MAFVoltage, O2VoltageLH, IgnitionTiming, AACValve, AFAlphaLH, AFAlphaSelflearnLH,
	}

	cmd, err := ParamsToCommand(cat, ids)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cmd, sample) {
		t.Fatalf("command = % X\nwant      % X", cmd, sample)
	}

	params, err := CommandToParams(cat, sample)
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != len(ids) {
		t.Fatalf("decoded %d params, want %d", len(params), len(ids))
	}
	for i, id := range ids {
		want, _ := cat.Lookup(id)
		if params[i].Key != want.Key {
			t.Errorf("params[%d] = %q, want %q", i, params[i].Name, want.Name)
		}
	}
}

func TestParamsToCommandKeepsOrderAndDuplicates(t *testing.T) {
	cat := mustDefaultCatalog(t)
	cmd, err := ParamsToCommand(cat, []ParamID{TPS, TPS, EngineSpeedHR})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x5A, 0x0D, 0x5A, 0x0D, 0x5A, 0x01, 0xF0}
	if !bytes.Equal(cmd, want) {
		t.Fatalf("command = % X, want % X", cmd, want)
	}

	cmd, err = ParamsToCommand(cat, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cmd, []byte{StreamStart}) {
		t.Fatalf("empty command = % X", cmd)
	}
}

func TestParamsToCommandUnknownID(t *testing.T) {
	cat := mustDefaultCatalog(t)
	_, err := ParamsToCommand(cat, []ParamID{TPS, 4242})
	if !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}
	var unknown *UnknownParameterError
	if !errors.As(err, &unknown) || unknown.ID != 4242 {
		t.Fatalf("error context = %v", err)
	}
}

func TestCommandToParams(t *testing.T) {
	cat := mustDefaultCatalog(t)

	tests := []struct {
		name    string
		cmd     []byte
		want    []ParamID
		wantErr error
		badByte byte
	}{
		{"stops at stream start", []byte{0x5A, 0x0B, 0xF0, 0x5A, 0x01}, []ParamID{VehicleSpeed}, nil, 0},
		{"no terminator", []byte{0x5A, 0x0B, 0x5A, 0x01}, []ParamID{VehicleSpeed, EngineSpeedHR}, nil, 0},
		{"empty", nil, nil, nil, 0},
		{"dual msb is unresolvable", []byte{0x5A, 0x00, 0xF0}, nil, ErrUnresolvableRegister, 0x00},
		{"unmapped register", []byte{0x5A, 0x0B, 0x5A, 0x60, 0xF0}, nil, ErrUnresolvableRegister, 0x60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := CommandToIDs(cat, tt.cmd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				var unres *UnresolvableRegisterError
				if !errors.As(err, &unres) || unres.Register != tt.badByte {
					t.Fatalf("error context = %v", err)
				}
				if _, err := CommandToParams(cat, tt.cmd); !errors.Is(err, tt.wantErr) {
					t.Fatalf("CommandToParams: expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids[%d] = %d, want %d", i, ids[i], tt.want[i])
				}
			}
		})
	}
}

// canonicalIDs 返回拥有自身规范寄存器字节的参数
func canonicalIDs(cat *Catalog) []ParamID {
	var ids []ParamID
	for i := 0; i < cat.Len(); i++ {
		p, _ := cat.Lookup(ParamID(i))
		if owner, ok := cat.LookupByRegister(p.Register()); ok && owner == ParamID(i) {
			ids = append(ids, ParamID(i))
		}
	}
	return ids
}

func TestCommandRoundTrip(t *testing.T) {
	cat := mustDefaultCatalog(t)
	pool := canonicalIDs(cat)
	rng := rand.New(rand.NewSource(1))

	for n := 0; n < 200; n++ {
		size := 1 + rng.Intn(len(pool))
		subset := make([]ParamID, size)
		for i, j := range rng.Perm(len(pool))[:size] {
			subset[i] = pool[j]
		}

		cmd, err := ParamsToCommand(cat, subset)
		if err != nil {
			t.Fatal(err)
		}
		got, err := CommandToIDs(cat, cmd)
		if err != nil {
			t.Fatalf("decode % X: %v", cmd, err)
		}
		if len(got) != len(subset) {
			t.Fatalf("round trip length %d, want %d", len(got), len(subset))
		}
		for i := range subset {
			if got[i] != subset[i] {
				t.Fatalf("round trip [%d] = %d, want %d", i, got[i], subset[i])
			}
		}
	}
}

func TestCommandRoundTripSharedBitRegister(t *testing.T) {
	cat := mustDefaultCatalog(t)
	cmd, err := ParamsToCommand(cat, []ParamID{PowerSteering})
	if err != nil {
		t.Fatal(err)
	}
	params, err := CommandToParams(cat, cmd)
	if err != nil {
		t.Fatal(err)
	}
	ps, _ := cat.Lookup(PowerSteering)
	if len(params) != 1 || params[0].Register() != ps.Register() {
		t.Fatalf("params = %+v", params)
	}
}
