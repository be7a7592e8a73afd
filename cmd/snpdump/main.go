// Command snpdump drives a simple network handle through the device adapter
// and the poll loop. Frames come from a pcap file (-replay) or, when built
// with -tags=pcap, a live interface (-iface).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/banshee-data/snpnet/internal/config"
	"github.com/banshee-data/snpnet/internal/fsutil"
	"github.com/banshee-data/snpnet/internal/phy"
	"github.com/banshee-data/snpnet/internal/poller"
	"github.com/banshee-data/snpnet/internal/snp"
	"github.com/banshee-data/snpnet/internal/snpdev"
	"github.com/banshee-data/snpnet/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to device config JSON (defaults apply when empty)")
	replay      = flag.String("replay", "", "Replay received frames from this pcap file")
	iface       = flag.String("iface", "", "Open this interface live (requires -tags=pcap)")
	mac         = flag.String("mac", "02:00:5e:10:00:01", "Interface address used with -replay")
	txOut       = flag.String("tx-out", "", "With -replay, write transmitted frames to this pcap file")
	capturePath = flag.String("capture", "", "Record frames crossing the adapter to this pcap file")
	trace       = flag.Bool("trace", false, "Log a one-line summary of every frame")
	arpIP       = flag.String("arp-ip", "", "Answer ARP requests for this IPv4 address")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	configPath  string
	replay      string
	iface       string
	mac         string
	txOut       string
	capturePath string
	trace       bool
	arpIP       string

	fs fsutil.FileSystem
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("snpdump"))
		return
	}

	opts := options{
		configPath:  *configPath,
		replay:      *replay,
		iface:       *iface,
		mac:         *mac,
		txOut:       *txOut,
		capturePath: *capturePath,
		trace:       *trace,
		arpIP:       *arpIP,
		fs:          fsutil.OSFileSystem{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("snpdump: %v", err)
	}
}

func loadConfig(path string) (*config.DeviceConfig, error) {
	if path == "" {
		return config.EmptyDeviceConfig(), nil
	}
	return config.LoadDeviceConfig(path)
}

// openHandle returns the handle and the files it holds open.
func openHandle(opts options, cfg *config.DeviceConfig) (snp.Handle, []io.Closer, error) {
	switch {
	case opts.replay != "" && opts.iface != "":
		return nil, nil, errors.New("-replay and -iface are mutually exclusive")
	case opts.iface != "":
		h, err := snp.OpenLive(snp.LiveConfig{
			Interface:   opts.iface,
			SnapLen:     cfg.GetSnapLen(),
			ReadTimeout: cfg.GetReadTimeout(),
		})
		return h, nil, err
	case opts.replay == "":
		return nil, nil, errors.New("one of -replay or -iface is required")
	}

	addr, err := net.ParseMAC(opts.mac)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid -mac: %w", err)
	}

	var closers []io.Closer
	src, err := opts.fs.Open(opts.replay)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	closers = append(closers, src)

	fileCfg := snp.FileConfig{Source: src, Address: addr}
	if opts.txOut != "" {
		sink, err := opts.fs.Create(opts.txOut)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to create tx output file: %w", err)
		}
		closers = append(closers, sink)
		fileCfg.Sink = sink
	}

	h, err := snp.NewFileNetwork(fileCfg)
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	return h, closers, nil
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Printf("failed to close file: %v", err)
		}
	}
}

func run(ctx context.Context, opts options) error {
	if opts.fs == nil {
		opts.fs = fsutil.OSFileSystem{}
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	handle, closers, err := openHandle(opts, cfg)
	if err != nil {
		return err
	}
	defer closeAll(closers)
	defer handle.Close()

	adapter, err := snpdev.New(handle, snpdev.WithMaxPacket(cfg.GetMaxPacket()))
	if err != nil {
		return fmt.Errorf("failed to set receive filters: %w", err)
	}
	log.Printf("adapter ready: address %s, mtu %d", adapter.CurrentAddress(), adapter.Capabilities().MaxTransmissionUnit)

	var dev phy.Device = adapter
	if opts.capturePath != "" {
		mode, err := phy.ParsePcapMode(cfg.GetCaptureMode())
		if err != nil {
			return err
		}
		out, err := opts.fs.Create(opts.capturePath)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer out.Close()

		pw, err := phy.NewPcapWriter(dev, out, mode)
		if err != nil {
			return err
		}
		defer func() { log.Printf("captured %d frames to %s", pw.Captured(), opts.capturePath) }()
		dev = pw
	}
	if opts.trace || cfg.GetTrace() {
		dev = phy.NewTracer(dev, nil)
	}

	var handler poller.Handler
	if opts.arpIP != "" {
		ip := net.ParseIP(opts.arpIP)
		if ip == nil {
			return fmt.Errorf("invalid -arp-ip %q", opts.arpIP)
		}
		responder, err := poller.NewARPResponder(adapter.CurrentAddress(), ip)
		if err != nil {
			return err
		}
		defer func() { log.Printf("answered %d ARP requests", responder.Replies()) }()
		handler = responder
	}

	p := poller.New(poller.Config{
		Device:        dev,
		Handler:       handler,
		PollInterval:  cfg.GetPollInterval(),
		StatsInterval: cfg.GetStatsInterval(),
	})
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
