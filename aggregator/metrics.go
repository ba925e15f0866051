package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promTransmitCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocr2",
		Subsystem: "aggregator",
		Name:      "transmit_count",
		Help:      "Number of transmit calls, labeled by the resulting status",
	},
		[]string{"description", "status"},
	)
	promLatestAnswer = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ocr2",
		Subsystem: "aggregator",
		Name:      "latest_answer",
		Help:      "Latest committed answer, scaled by the feed's decimals",
	},
		[]string{"description"},
	)
	promLatestRoundID = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ocr2",
		Subsystem: "aggregator",
		Name:      "latest_round_id",
		Help:      "Latest committed round id",
	},
		[]string{"description"},
	)
	promConfigCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ocr2",
		Subsystem: "aggregator",
		Name:      "config_count",
		Help:      "Number of times the oracle set has been configured",
	},
		[]string{"description"},
	)
)
