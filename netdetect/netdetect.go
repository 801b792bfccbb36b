package netdetect

import (
	"log"
	"net/url"
	"time"

	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/utils"
	"github.com/go-ping/ping"
)

const warnRtt = 200 * time.Millisecond

// NetworkDetector probes the latency to the quote and relay endpoints
// so sustained degradation shows up in the network log. Observational
// only, it gates nothing.
type NetworkDetector struct {
	peers   []string
	pingers []*ping.Pinger
	logger  *log.Logger
}

func NewNetworkDetector(endpoints []string) *NetworkDetector {
	nd := &NetworkDetector{
		logger: utils.NewLog(config.LogPath, config.NetworkLog),
	}
	for _, endpoint := range endpoints {
		if endpoint == "" {
			continue
		}
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		nd.peers = append(nd.peers, parsed.Hostname())
	}
	return nd
}

func (nd *NetworkDetector) Start() {
	for _, peer := range nd.peers {
		pinger, err := ping.NewPinger(peer)
		if err != nil {
			nd.logger.Printf("pinger %s err: %v", peer, err)
			continue
		}
		peer := peer
		pinger.Interval = time.Second * 10
		pinger.OnRecv = func(pkt *ping.Packet) {
			if pkt.Rtt > warnRtt {
				nd.logger.Printf("peer %s rtt %s", peer, pkt.Rtt)
			}
		}
		nd.pingers = append(nd.pingers, pinger)
		go func() {
			if err := pinger.Run(); err != nil {
				nd.logger.Printf("pinger %s run err: %v", peer, err)
			}
		}()
	}
}

func (nd *NetworkDetector) Stop() {
	for _, pinger := range nd.pingers {
		pinger.Stop()
	}
}
