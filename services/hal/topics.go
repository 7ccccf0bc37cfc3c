package hal

import (
	"spec-mtc-go/bus"
	"spec-mtc-go/types"
)

// Capability topics follow hal/cap/<domain>/<kind>/<name>/<leaf>.

func TopicState() bus.Topic { return bus.T("hal", "state") }

func capTopic(domain string, kind types.Kind, name, leaf string) bus.Topic {
	return bus.T("hal", "cap", domain, string(kind), name, leaf)
}

func TopicClockInfo() bus.Topic { return capTopic("sys", types.KindClock, "core", "info") }

func TopicLEDInfo(name string) bus.Topic  { return capTopic("io", types.KindLED, name, "info") }
func TopicLEDValue(name string) bus.Topic { return capTopic("io", types.KindLED, name, "value") }

func TopicTempValue(ch string) bus.Topic  { return capTopic("env", types.KindTemperature, ch, "value") }
func TopicTempStatus(ch string) bus.Topic { return capTopic("env", types.KindTemperature, ch, "status") }
