// Package discovery advertises and browses the _syncwave._tcp mDNS/DNS-SD
// service type.
package discovery

import (
	"context"
	"time"

	"github.com/brutella/dnssd"

	"github.com/charmbracelet/log"
)

// ServiceType is the DNS-SD service type SyncWave servers advertise.
const ServiceType = "_syncwave._tcp"

// Version is advertised in the TXT record so clients can detect protocol
// skew at discovery time, before ever opening a TCP connection.
const Version = "1"

// Advertiser announces a running stream server on the local network.
type Advertiser struct {
	logger   *log.Logger
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// NewAdvertiser constructs an Advertiser.
func NewAdvertiser(logger *log.Logger) *Advertiser {
	if logger == nil {
		logger = log.Default()
	}
	return &Advertiser{logger: logger}
}

// Start registers and responds to _syncwave._tcp queries for name:port,
// the way src/dns_sd.go announces the KISS TNC service.
func (a *Advertiser) Start(name string, port int) error {
	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
		Text: map[string]string{
			"version": Version,
			"name":    name,
		},
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return err
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return err
	}
	if _, err := responder.Add(service); err != nil {
		return err
	}
	a.responder = responder

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("dnssd responder stopped", "err", err)
		}
	}()

	a.logger.Info("advertising service", "name", name, "type", ServiceType, "port", port)
	return nil
}

// Stop cancels the responder goroutine.
func (a *Advertiser) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Server describes one server discovered by Browse.
type Server struct {
	Name    string
	Address string
	Port    int
	Version string
}

// Browse collects _syncwave._tcp servers advertised on the local network
// for the given timeout and returns the list discovered, the way the
// original network_client.discover_servers collects ServiceBrowser
// callbacks for a fixed window before returning.
func Browse(timeout time.Duration) ([]Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var servers []Server
	added := func(e dnssd.BrowseEntry) {
		addr := ""
		if len(e.IPs) > 0 {
			addr = e.IPs[0].String()
		}
		servers = append(servers, Server{
			Name:    e.Text["name"],
			Address: addr,
			Port:    e.Port,
			Version: e.Text["version"],
		})
	}
	removed := func(e dnssd.BrowseEntry) {}

	err := dnssd.LookupType(ctx, ServiceType+".local.", added, removed)
	if err != nil && ctx.Err() == nil {
		return nil, err
	}
	return servers, nil
}
