// Package network provides the netlink-driven network block. A monitor
// socket joins the kernel's link and address multicast groups; every
// notification triggers a re-query of link state and addresses over a
// separate request socket, so the block reacts to cable plugs, WiFi roams,
// and DHCP renewals without polling.
package network

import (
	"context"
	"fmt"
	"time"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
)

// DefaultInterval is the fallback re-query cadence; netlink events normally
// arrive far more often than this fires.
const DefaultInterval = 30 * time.Second

// Config controls the network block.
type Config struct {
	// Interface pins the block to one interface. Empty selects the first
	// running non-loopback interface.
	Interface string

	// Interval is the fallback re-query cadence.
	Interval time.Duration
}

// Block renders the state of one network interface.
type Block struct {
	cfg  Config
	poke chan struct{}
}

func init() {
	blocks.Register("network", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{
			Interface: cfg.Interface,
			Interval:  cfg.Interval.Duration,
		}), nil
	})
}

// New creates a network block.
func New(cfg Config) *Block {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{cfg: cfg, poke: make(chan struct{}, 1)}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "network" }

// Refresh forces an immediate re-query.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// Run opens the monitor and query sockets and re-renders on every kernel
// notification. Both sockets are closed on every exit path; closing the
// monitor socket is also what unblocks its receive loop on cancellation.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	monitor, err := rtnetlink.Dial(&netlink.Config{
		Groups: unix.RTMGRP_LINK | unix.RTMGRP_IPV4_IFADDR | unix.RTMGRP_IPV6_IFADDR,
	})
	if err != nil {
		return fmt.Errorf("dial netlink monitor: %w", err)
	}
	defer monitor.Close()

	query, err := rtnetlink.Dial(nil)
	if err != nil {
		return fmt.Errorf("dial netlink: %w", err)
	}
	defer query.Close()

	stop := context.AfterFunc(ctx, func() {
		monitor.Close()
	})
	defer stop()

	events := make(chan struct{}, 1)
	go func() {
		for {
			if _, _, err := monitor.Receive(); err != nil {
				return
			}
			select {
			case events <- struct{}{}:
			default:
			}
		}
	}()

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		emit(b.query(query))
		select {
		case <-events:
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// query reads link and address tables and renders the selected interface.
func (b *Block) query(conn *rtnetlink.Conn) blocks.RenderState {
	links, err := conn.Link.List()
	if err != nil {
		return blocks.RenderState{FullText: "net n/a", State: blocks.StateError}
	}

	link, found := b.selectLink(links)
	if !found {
		name := b.cfg.Interface
		if name == "" {
			name = "net"
		}
		return blocks.RenderState{
			FullText: name + " down",
			State:    blocks.StateWarning,
		}
	}

	addrs, err := conn.Address.List()
	if err != nil {
		return blocks.RenderState{FullText: "net n/a", State: blocks.StateError}
	}

	name := link.Attributes.Name
	addr := firstAddress(addrs, link.Index)
	if addr == "" {
		return blocks.RenderState{
			FullText:  name + " no addr",
			ShortText: name,
			State:     blocks.StateWarning,
		}
	}
	return blocks.RenderState{
		FullText:  fmt.Sprintf("%s %s", name, addr),
		ShortText: name,
		State:     blocks.StateIdle,
	}
}

// selectLink picks the configured interface, or the first running
// non-loopback one.
func (b *Block) selectLink(links []rtnetlink.LinkMessage) (rtnetlink.LinkMessage, bool) {
	for _, l := range links {
		if l.Attributes == nil {
			continue
		}
		if b.cfg.Interface != "" {
			if l.Attributes.Name == b.cfg.Interface && l.Attributes.OperationalState == rtnetlink.OperStateUp {
				return l, true
			}
			continue
		}
		if l.Flags&unix.IFF_LOOPBACK != 0 {
			continue
		}
		if l.Attributes.OperationalState == rtnetlink.OperStateUp {
			return l, true
		}
	}
	return rtnetlink.LinkMessage{}, false
}

// firstAddress returns the interface's first IPv4 address, falling back to
// IPv6.
func firstAddress(addrs []rtnetlink.AddressMessage, index uint32) string {
	var v6 string
	for _, a := range addrs {
		if a.Index != index || a.Attributes == nil {
			continue
		}
		ip := a.Attributes.Address
		if ip == nil {
			ip = a.Attributes.Local
		}
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			return ip.String()
		}
		if v6 == "" && !ip.IsLinkLocalUnicast() {
			v6 = ip.String()
		}
	}
	return v6
}
