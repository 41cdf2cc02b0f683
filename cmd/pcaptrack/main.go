package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"pcaptrack/internal/capture"
	"pcaptrack/internal/config"
	"pcaptrack/internal/model"
	"pcaptrack/internal/sink"
	"pcaptrack/internal/statusapi"
	"pcaptrack/internal/tracker"
)

func main() {
	cfg, err := config.ParseFlags(flag.NewFlagSet("pcaptrack", flag.ExitOnError), os.Args[1:])
	if err != nil {
		log.Fatalf("failed to parse configuration: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for s := range sigChan {
			log.Printf("received signal %v, ignoring it; processing continues", s)
		}
	}()

	s, err := newSink(cfg)
	if err != nil {
		log.Fatalf("failed to initialize sink: %v", err)
	}
	defer s.Close()

	d := tracker.NewDispatcher(s, cfg.Disable, cfg.TimeoutMicros())

	startStatusServers(cfg, d)

	run(cfg, d, s)

	log.Printf("done: %d packets processed; tcp opened=%d closed=%d; udp opened=%d closed=%d; icmp opened=%d closed=%d",
		d.TotalPackets(),
		d.TCP().Opened(), d.TCP().Closed(),
		d.UDP().Opened(), d.UDP().Closed(),
		d.ICMP().Opened(), d.ICMP().Closed(),
	)

	os.Exit(0)
}

// startStatusServers launches the optional gRPC and HTTP status
// surfaces in the background when their listen addresses are
// configured; each is independently opt-in.
func startStatusServers(cfg *config.Config, d *tracker.Dispatcher) {
	if cfg.StatusGRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.StatusGRPCAddr)
		if err != nil {
			log.Printf("status gRPC server disabled: failed to listen on %s: %v", cfg.StatusGRPCAddr, err)
		} else {
			srv := grpc.NewServer()
			statusapi.Register(srv, d)
			go func() {
				log.Printf("status gRPC server listening on %s", cfg.StatusGRPCAddr)
				if err := srv.Serve(lis); err != nil {
					log.Printf("status gRPC server stopped: %v", err)
				}
			}()
		}
	}

	if cfg.StatusHTTPAddr != "" {
		h := statusapi.NewHTTPServer(d)
		go func() {
			log.Printf("status HTTP server listening on %s", cfg.StatusHTTPAddr)
			if err := http.ListenAndServe(cfg.StatusHTTPAddr, h.Handler()); err != nil {
				log.Printf("status HTTP server stopped: %v", err)
			}
		}()
	}
}

func newSink(cfg *config.Config) (sink.Sink, error) {
	if cfg.ClickHouse != nil {
		return sink.NewClickHouseSink(sink.ClickHouseConfig{
			Host:     cfg.ClickHouse.Host,
			Port:     cfg.ClickHouse.Port,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
	}
	return sink.NewNATSSink(cfg.NATSURL, cfg.Subject, 2*time.Second)
}

// run drives the capture-file iteration: sorted files in dir, packets
// in file order to the dispatcher, flush+finalize after each file.
func run(cfg *config.Config, d *tracker.Dispatcher, s sink.Sink) {
	files, err := capture.ListFiles(cfg.Directory)
	if err != nil {
		log.Printf("failed to list capture directory %s: %v", cfg.Directory, err)
		return
	}

	var minS, maxS uint64
	haveBounds := false
	var lastPacket *model.Packet

	for _, path := range files {
		r, err := capture.NewReader(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}

		r.Each(func(pkt *model.Packet) {
			if !haveBounds || pkt.TimestampS < minS {
				minS = pkt.TimestampS
			}
			if !haveBounds || pkt.TimestampS > maxS {
				maxS = pkt.TimestampS
			}
			haveBounds = true
			lastPacket = pkt
			d.OnPacket(pkt)
		})
		r.Close()

		if err := s.Flush(); err != nil {
			log.Printf("sink flush failed after %s: %v", path, err)
		}
		d.Finalize(lastPacket)
	}

	if haveBounds {
		log.Printf("earliest packet timestamp %d, latest %d", minS, maxS)
	}
}
