package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Pressed       string       `json:"pressed"`
	Elapsed       string       `json:"elapsed,omitempty"`
	Sample        *int         `json:"sample"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	LastEvent     *EventJSON   `json:"last_event,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Press   int `json:"press"`
	Hold    int `json:"hold"`
	Release int `json:"release"`
}

// EventJSON is the JSON representation of the last button event.
type EventJSON struct {
	Event  string `json:"event"`
	Button string `json:"button"`
	At     string `json:"at"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LoopMs         int64  `json:"loop_ms"`
	SampleMs       int64  `json:"sample_ms"`
	ConfirmSamples int    `json:"confirm_samples"`
	HoldSamples    int    `json:"hold_samples"`
	ReleaseSamples int    `json:"release_samples"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	HTTPAddr       string `json:"http_addr"`
	ADCDevice      string `json:"adc_device"`
	LCDDriver      string `json:"lcd_driver"`
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.State
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:         state,
		Pressed:       snap.Pressed.String(),
		Elapsed:       snap.Elapsed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Enabled:   snap.Config.Broker != "",
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
		},
		Counts: CountsJSON{
			Press:   snap.Counts.Press,
			Hold:    snap.Counts.Hold,
			Release: snap.Counts.Release,
		},
		Config: ConfigJSON{
			LoopMs:         snap.Config.LoopMs,
			SampleMs:       snap.Config.SampleMs,
			ConfirmSamples: snap.Config.ConfirmSamples,
			HoldSamples:    snap.Config.HoldSamples,
			ReleaseSamples: snap.Config.ReleaseSamples,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			HTTPAddr:       snap.Config.HTTPAddr,
			ADCDevice:      snap.Config.ADCDevice,
			LCDDriver:      snap.Config.LCDDriver,
		},
	}
	if snap.SampleOK {
		v := snap.Sample
		inner.Sample = &v
	}
	if ev := snap.LastEvent; ev != nil {
		inner.LastEvent = &EventJSON{
			Event:  ev.Kind.String(),
			Button: ev.Button.String(),
			At:     ev.At.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
