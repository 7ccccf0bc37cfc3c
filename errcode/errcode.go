package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"

	// Clock/power configuration.
	InvalidClockPlan    Code = "invalid_clock_plan"
	FreqOutOfRange      Code = "frequency_out_of_range"
	OscillatorTimeout   Code = "oscillator_timeout"
	PLLLockTimeout      Code = "pll_lock_timeout"
	VoltageScaleTimeout Code = "voltage_scale_timeout"
	ClockSwitchTimeout  Code = "clock_switch_timeout"
	AlreadyApplied      Code = "already_applied"
	ClocksNotReady      Code = "clocks_not_ready"

	// Ownership.
	UnknownPin   Code = "unknown_pin"
	PinInUse     Code = "pin_in_use"
	AlreadyTaken Code = "already_taken"

	// Scheduling.
	PoolExhausted    Code = "pool_exhausted"
	TaskTableFull    Code = "task_table_full"
	SchedulerRunning Code = "scheduler_running"

	Error Code = "error" // generic fallback
)

// E keeps an operation and detail alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, code) match a wrapped Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E without a cause.
func New(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}
