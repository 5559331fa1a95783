package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/udit2303/p2p-chat/pkg/appendlog"
	"github.com/udit2303/p2p-chat/pkg/config"
	"github.com/udit2303/p2p-chat/pkg/discovery"
	"github.com/udit2303/p2p-chat/pkg/keys"
	"github.com/udit2303/p2p-chat/pkg/util"
)

var (
	log = util.DefaultLogger()
)

type cli struct {
	Config      string        `help:"YAML configuration file." short:"f" type:"existingfile"`
	Channel     string        `help:"Join chat channel with this URL." short:"c" placeholder:"<link>"`
	Port        uint16        `help:"Port advertised to peers."`
	Namespace   string        `help:"Namespace mixed into the discovery key."`
	Interval    time.Duration `help:"Interval between discovery queries."`
	Interface   string        `help:"Join the multicast group on this interface only."`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address." placeholder:"host:port"`
	DNSSD       bool          `name:"dnssd" help:"Also register as a DNS-SD service."`
	STUN        bool          `name:"stun" help:"Look up the public address via STUN at startup."`
	Debug       bool          `help:"Enable debug logging."`
}

// config loads the file, if any, and applies flags on top of it.
func (c *cli) config() (*config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		if cfg, err = config.Load(c.Config); err != nil {
			return nil, err
		}
	}

	if c.Channel != "" {
		cfg.Channel = c.Channel
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if c.Namespace != "" {
		cfg.Namespace = c.Namespace
	}
	if c.Interval != 0 {
		cfg.Discovery.Interval = c.Interval
	}
	if c.Interface != "" {
		cfg.Discovery.Interface = c.Interface
	}
	if c.MetricsAddr != "" {
		cfg.MetricsAddr = c.MetricsAddr
	}
	cfg.Discovery.DNSSD = cfg.Discovery.DNSSD || c.DNSSD
	cfg.Discovery.STUN = cfg.Discovery.STUN || c.STUN
	cfg.Debug = cfg.Debug || c.Debug

	return cfg, cfg.Validate()
}

func main() {
	var params cli
	kong.Parse(&params,
		kong.Name("p2p-chat"),
		kong.Description("Find members of a chat channel on the local network and keep a signed log of what you write."),
	)

	cfg, err := params.config()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.Debug {
		util.SetLevel(util.DebugLevel)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("Received signal, shutting down...", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Chat stopped")
	}
	log.Info("Shutting down...")
}

func run(ctx context.Context, cfg *config.Config) error {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		return err
	}
	feed := appendlog.NewWithKeyPair(kp)

	// Create a new channel or join an existing one
	channelKey := []byte(kp.Public)
	if cfg.Channel != "" {
		if channelKey, err = config.ParseChannel(cfg.Channel); err != nil {
			return err
		}
	}
	fmt.Println(config.ChannelURL(channelKey))

	discoveryKey, err := keys.DeriveDiscoveryKey(channelKey, []byte(cfg.Namespace))
	if err != nil {
		return err
	}

	disc, err := discovery.New(discoveryKey, cfg.Port, cfg.ProtocolConfig())
	if err != nil {
		return fmt.Errorf("could not start discovery: %w", err)
	}

	registry, err := discovery.NewRegistry(cfg.Discovery.RegistrySize)
	if err != nil {
		disc.Close()
		return err
	}

	logAddresses(cfg)

	if cfg.Discovery.DNSSD {
		stop, err := disc.AdvertiseService(instanceName(cfg.Port))
		if err != nil {
			log.Warn("DNS-SD registration failed", "error", err)
		} else {
			defer stop()
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	found := make(chan discovery.Peer)

	g.Go(func() error {
		return disc.Run(ctx, found)
	})
	g.Go(func() error {
		return trackPeers(ctx, found, registry)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsAddr)
		})
	}

	// Reading stdin cannot be interrupted, so it stays outside the group.
	go readMessages(os.Stdin, feed, registry)

	return g.Wait()
}

// trackPeers owns the peer registry and reports each token once.
func trackPeers(ctx context.Context, found <-chan discovery.Peer, registry *discovery.Registry) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case peer := <-found:
			if !registry.Add(peer) {
				continue
			}
			// TODO: start log replication with the peer once a data channel exists.
			log.Info("New peer",
				"addr", peer.Addr,
				"port", peer.Port,
				"token", peer.Token,
				"known", registry.Len())
		}
	}
}

// readMessages appends every entered line to the local signed log.
func readMessages(r io.Reader, feed *appendlog.Log, registry *discovery.Registry) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/peers":
			for _, p := range registry.Peers() {
				log.Info("Known peer", "peer", p)
			}
			continue
		case "/verify":
			log.Info("Log verified", "entries", feed.Len(), "valid", feed.Verify(feed.PublicKey()))
			continue
		}

		entry := feed.Append([]byte(line))
		log.Info("Message",
			"seq", entry.Content.SequenceNumber,
			"hash", fmt.Sprintf("%016x", entry.Hash()),
			"text", line)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("Stopped reading input", "error", err)
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info("Serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// logAddresses shows where peers could reach us. Discovery itself always
// advertises 0.0.0.0.
func logAddresses(cfg *config.Config) {
	if localIPs, err := util.GetLocalIPs(); err == nil {
		log.Info("Local IPv4 addresses", "ips", localIPs)
	} else {
		log.Warn("Unable to get local IPs", "error", err)
	}

	if !cfg.Discovery.STUN {
		return
	}
	if pub, err := util.GetPublicAddr(cfg.Discovery.STUNServer, 3*time.Second); err == nil {
		log.Info("Public internet address (via STUN)", "address", pub)
	} else {
		log.Warn("Unable to determine public address (STUN)", "error", err)
	}
}

func instanceName(port uint16) string {
	host, err := os.Hostname()
	if err != nil {
		host = "p2p-chat"
	}
	return fmt.Sprintf("%s-%d-%d", host, port, os.Getpid())
}
