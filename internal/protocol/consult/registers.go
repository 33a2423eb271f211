package consult

// 内置寄存器表的参数标识, 顺序与 DefaultParameters 一致
const (
	EngineSpeedHR ParamID = iota
	EngineSpeedLR
	MAFVoltage
	MAFVoltageRH
	CoolantTemp
	O2VoltageLH
	O2VoltageRH
	VehicleSpeed
	BatteryVoltage
	TPS
	FuelTemp
	IAT
	EGT
	InjectorTimeLH
	IgnitionTiming
	AACValve
	AFAlphaLH
	AFAlphaRH
	AFAlphaSelflearnLH
	AFAlphaSelflearnRH
	InjectorTimeRH
	PurgeValveStep
	TankFuelTemp
	FPCMVoltage
	WGSolenoid
	BoostVoltage
	EngineMount
	PositionCounter
	FuelGaugeVoltage
	O2FrontB1Voltage
	O2FrontB2Voltage
	IgnitionSwitch
	CALLDValue
	FuelSchedule
	O2RearB1Voltage
	O2RearB2Voltage
	ThrottlePositionABS
	MAFScaled
	EvapPressureVoltage
	ABSPressureVoltageA
	ABSPressureVoltageB
	FPCMPressureVoltageA
	FPCMPressureVoltageB
	ACOn
	PowerSteering
	ParkNeutral
	Cranking
	ClosedThrottle
	ACRelay
	FuelPumpRelay
	VTCSolenoid
	CoolantFanHi
	CoolantFanLo
	PRegControlValve
	WGSolenoidFlag
	IACVFICDSolenoid
	EGRSolenoid
	LHBankLean
	RHBankLean
)

// DefaultParameters 返回 Consult 寄存器表 (地址 0x00-0x53)。
// 每次调用返回新的切片。
func DefaultParameters() []Parameter {
	return []Parameter{
		Dual("engine_speed_hr", "Engine Speed HR", 0x00, 0x01, "RPM").WithScale(12.5),
		Dual("engine_speed_lr", "Engine Speed LR", 0x02, 0x03, "RPM").WithScale(8),
		Dual("maf_voltage", "MAF Voltage", 0x04, 0x05, "mV").WithScale(5),
		Dual("maf_voltage_rh", "MAF Voltage RH", 0x06, 0x07, "mV").WithScale(5),
		Single("coolant_temp", "Coolant Temp", 0x08, "C").WithOffset(-50),
		Single("o2_voltage_lh", "O2 Voltage LH", 0x09, "mV").WithScale(10),
		Single("o2_voltage_rh", "O2 Voltage RH", 0x0A, "mV").WithScale(10),
		Single("vehicle_speed", "Vehicle Speed", 0x0B, "km/h").WithScale(2),
		Single("battery_voltage", "Battery Voltage", 0x0C, "V").WithScale(80),
		Single("tps", "TPS", 0x0D, "%").WithScale(20),
		Single("fuel_temp", "Fuel Temp", 0x0F, "C").WithOffset(-50),
		Single("iat", "IAT", 0x11, "C").WithOffset(-50),
		Single("egt", "EGT", 0x12, "mV").WithScale(20),
		Dual("injector_time_lh", "Injector Time LH", 0x14, 0x15, "ms").WithScale(1.0 / 100),
		Single("ignition_timing", "Ignition Timing", 0x16, "deg BTDC").WithScale(-1).WithOffset(110),
		Single("aac_valve", "AAC Valve", 0x17, "%").WithScale(1.0 / 2),
		Single("af_alpha_lh", "AF Alpha LH", 0x1A, "%"),
		Single("af_alpha_rh", "AF Alpha RH", 0x1B, "%"),
		Single("af_alpha_selflearn_lh", "AF Alpha Selflearn LH", 0x1C, "%"),
		Single("af_alpha_selflearn_rh", "AF Alpha Selflearn RH", 0x1D, "%"),
		Dual("injector_time_rh", "Injector Time RH", 0x22, 0x23, "ms").WithScale(1.0 / 100),
		Single("purge_valve_step", "Purge Valve Step", 0x25, "steps"),
		Single("tank_fuel_temp", "Tank Fuel Temp", 0x26, ""),
		Single("fpcm_voltage", "FPCM Voltage", 0x27, "V"),
		Single("wg_solenoid", "WG Solenoid", 0x28, ""),
		Single("boost_voltage", "Boost Voltage", 0x29, "V"),
		Single("engine_mount", "Engine Mount", 0x2A, ""),
		Single("position_counter", "Position Counter", 0x2E, ""),
		Single("fuel_gauge_voltage", "Fuel Gauge Voltage", 0x2F, "V"),
		Single("o2_front_b1_voltage", "O2 Front B1 Voltage", 0x30, "V"),
		Single("o2_front_b2_voltage", "O2 Front B2 Voltage", 0x31, "V"),
		Single("ignition_switch", "Ignition Switch", 0x32, ""),
		Single("cal_ld_value", "CAL LD Value", 0x33, ""),
		Single("fuel_schedule", "Fuel Schedule", 0x34, ""),
		Single("o2_rear_b1_voltage", "O2 Rear B1 Voltage", 0x35, "V"),
		Single("o2_rear_b2_voltage", "O2 Rear B2 Voltage", 0x36, "V"),
		Single("throttle_position_abs", "Throttle Position ABS", 0x37, "%"),
		Single("maf_scaled", "MAF Scaled", 0x38, "g/s"),
		Single("evap_pressure_voltage", "Evap Pressure Voltage", 0x39, "V"),
		Single("abs_pressure_voltage_a", "ABS Pressure Voltage A", 0x3A, "V"),
		Single("abs_pressure_voltage_b", "ABS Pressure Voltage B", 0x4A, "V"),
		Single("fpcm_pressure_voltage_a", "FPCM Pressure Voltage A", 0x52, "V"),
		Single("fpcm_pressure_voltage_b", "FPCM Pressure Voltage B", 0x53, "V"),
		BitFlag("ac_on", "A/C On", 0x13, 4),
		BitFlag("power_steering", "Power Steering", 0x13, 3),
		BitFlag("park_neutral", "Park/Neutral", 0x13, 2),
		BitFlag("cranking", "Cranking", 0x13, 1),
		BitFlag("closed_throttle", "CLSD/THL POS", 0x13, 0),
		BitFlag("ac_relay", "A/C Relay", 0x1E, 7),
		BitFlag("fuel_pump_relay", "Fuel Pump Relay", 0x1E, 6),
		BitFlag("vtc_solenoid", "VTC Solenoid", 0x1E, 5),
		BitFlag("coolant_fan_hi", "Coolant Fan Hi", 0x1E, 1),
		BitFlag("coolant_fan_lo", "Coolant Fan Lo", 0x1E, 0),
		BitFlag("preg_control_valve", "P/Reg control valve", 0x1F, 6),
		BitFlag("wg_solenoid_flag", "WG Solenoid", 0x1F, 5),
		BitFlag("iacv_ficd_solenoid", "IACV FICD Solenoid", 0x1F, 3),
		BitFlag("egr_solenoid", "EGR Solenoid", 0x1F, 0),
		BitFlag("lh_bank_lean", "LH Bank Lean", 0x21, 7),
		BitFlag("rh_bank_lean", "RH Bank Lean", 0x21, 6),
	}
}
