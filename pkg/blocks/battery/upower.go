package battery

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
)

// UPower display-device constants.
const (
	upowerService   = "org.freedesktop.UPower"
	upowerDevice    = dbus.ObjectPath("/org/freedesktop/UPower/devices/DisplayDevice")
	upowerInterface = "org.freedesktop.UPower.Device"
)

// UPower BatteryState values we care about.
const (
	upowerCharging         = 1
	upowerDischarging      = 2
	upowerFullyCharged     = 4
	upowerPendingCharge    = 5
	upowerPendingDischarge = 6
)

// runUpower renders from the UPower display device, re-reading whenever its
// properties change. The D-Bus connection is the block's owned resource and
// is released on every exit path.
func (b *Block) runUpower(ctx context.Context, emit blocks.EmitFunc) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(upowerDevice),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("subscribe to upower signals: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	// Signal delivery can pause across suspend/resume; a slow fallback
	// re-read keeps the display honest.
	ticker := time.NewTicker(b.cfg.Interval * 6)
	defer ticker.Stop()

	obj := conn.Object(upowerService, upowerDevice)
	for {
		emit(b.readUpower(obj))
		select {
		case <-signals:
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// deviceObject is the slice of dbus.BusObject the block reads.
type deviceObject interface {
	GetProperty(p string) (dbus.Variant, error)
}

// readUpower fetches percentage and charge state, degrading on error.
func (b *Block) readUpower(obj deviceObject) blocks.RenderState {
	pctVar, err := obj.GetProperty(upowerInterface + ".Percentage")
	if err != nil {
		return blocks.RenderState{FullText: "bat n/a", State: blocks.StateError}
	}
	pct, ok := pctVar.Value().(float64)
	if !ok {
		return blocks.RenderState{FullText: "bat n/a", State: blocks.StateError}
	}

	stateVar, err := obj.GetProperty(upowerInterface + ".State")
	if err != nil {
		return blocks.RenderState{FullText: "bat n/a", State: blocks.StateError}
	}

	status := "Discharging"
	if raw, ok := stateVar.Value().(uint32); ok {
		switch raw {
		case upowerCharging, upowerPendingCharge:
			status = "Charging"
		case upowerFullyCharged:
			status = "Full"
		case upowerDischarging, upowerPendingDischarge:
			status = "Discharging"
		default:
			status = ""
		}
	}
	return b.render(int(pct), status)
}
