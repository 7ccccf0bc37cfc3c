package types

// ---- Common HAL state (retained) ----

type HALState struct {
	Level  string `json:"level"`  // "booting", "ready", "halted"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`  // uptime ms
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"`
}

// ---- Capability kinds ----

type Kind string

const (
	KindLED         Kind = "led"
	KindTemperature Kind = "temperature"
	KindClock       Kind = "clock"
)

// ---- LED capability payloads ----

type LEDInfo struct {
	Pin   string `json:"pin"`   // e.g. "PB0"
	Speed string `json:"speed"` // "low", "medium", "high", "very_high"
}

type LEDValue struct {
	Level uint8 `json:"level"` // 0 or 1
	TS    int64 `json:"ts_ms"`
}

// ---- Temperature ----

type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16 `json:"deci_c"`
	TS    int64 `json:"ts_ms"`
}

// ---- Clock tree summary (retained at bring-up) ----

type ClockInfo struct {
	SysclkHz uint32 `json:"sysclk_hz"`
	HclkHz   uint32 `json:"hclk_hz"`
	Pclk1Hz  uint32 `json:"pclk1_hz"`
	Pclk2Hz  uint32 `json:"pclk2_hz"`
	Pclk3Hz  uint32 `json:"pclk3_hz"`
	VOS      uint8  `json:"vos"`
	FlashWS  uint8  `json:"flash_ws"`
}
