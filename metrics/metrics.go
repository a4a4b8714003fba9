// Package metrics exposes the per-engine Prometheus counters and gauges a
// running node publishes: queries sent and answered, acceptances and
// rejections, conviction progress, and current committee size, one set of
// instruments per consensus layer (ice, sleet, hail).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set holds every instrument a node registers on startup. Call New once per
// process; the consensus engines take no Set, so cmd/node holds it and
// updates the gauges it can read from alpha's state.
type Set struct {
	IceQueriesSent prometheus.Counter
	IceAcks        prometheus.Counter
	IcePeersLive   prometheus.Gauge
	IcePeersFaulty prometheus.Gauge

	SleetQueriesSent prometheus.Counter
	SleetAccepted    prometheus.Counter
	SleetRejected    prometheus.Counter
	SleetConviction  prometheus.Gauge
	SleetLiveCells   prometheus.Gauge

	HailQueriesSent prometheus.Counter
	HailAccepted    prometheus.Counter
	HailRejected    prometheus.Counter
	HailConviction  prometheus.Gauge
	HailHeight      prometheus.Gauge

	CommitteeSize prometheus.Gauge
}

// New builds and registers a fresh instrument Set against registerer.
func New(registerer prometheus.Registerer) (*Set, error) {
	s := &Set{
		IceQueriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_ice_queries_sent_total",
			Help: "Liveness queries this node has sent to peers.",
		}),
		IceAcks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_ice_acks_total",
			Help: "Liveness Acks this node has received.",
		}),
		IcePeersLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_ice_peers_live",
			Help: "Peers currently believed live.",
		}),
		IcePeersFaulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_ice_peers_faulty",
			Help: "Peers currently believed faulty.",
		}),
		SleetQueriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_sleet_queries_sent_total",
			Help: "Cell preference queries this node has sent to peers.",
		}),
		SleetAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_sleet_cells_accepted_total",
			Help: "Cells accepted by sleet.",
		}),
		SleetRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_sleet_cells_rejected_total",
			Help: "Cells rejected by sleet.",
		}),
		SleetConviction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_sleet_conviction",
			Help: "Conviction counter of the most recently queried conflict set.",
		}),
		SleetLiveCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_sleet_live_cells",
			Help: "Cells currently tracked in sleet's conflict graph.",
		}),
		HailQueriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_hail_queries_sent_total",
			Help: "Block preference queries this node has sent to peers.",
		}),
		HailAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_hail_blocks_accepted_total",
			Help: "Blocks accepted by hail.",
		}),
		HailRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subzero_hail_blocks_rejected_total",
			Help: "Blocks rejected by hail.",
		}),
		HailConviction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_hail_conviction",
			Help: "Conviction counter of the most recently queried height's conflict set.",
		}),
		HailHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_hail_height",
			Help: "Height of the last accepted block.",
		}),
		CommitteeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subzero_committee_size",
			Help: "Number of validators in the live committee.",
		}),
	}

	for _, c := range s.collectors() {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.IceQueriesSent, s.IceAcks, s.IcePeersLive, s.IcePeersFaulty,
		s.SleetQueriesSent, s.SleetAccepted, s.SleetRejected, s.SleetConviction, s.SleetLiveCells,
		s.HailQueriesSent, s.HailAccepted, s.HailRejected, s.HailConviction, s.HailHeight,
		s.CommitteeSize,
	}
}
