// Package metrics exposes scrape-time gauges over the stored data.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CallDirectionCounter returns stored call counts grouped by direction.
type CallDirectionCounter interface {
	CountByDirection(ctx context.Context) (map[string]int64, error)
}

// ContactCounter returns the total number of stored contacts.
type ContactCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Collector is a prometheus.Collector that queries the store at scrape time.
type Collector struct {
	calls     CallDirectionCounter
	contacts  ContactCounter
	startTime time.Time

	callsTotalDesc    *prometheus.Desc
	contactsTotalDesc *prometheus.Desc
	uptimeDesc        *prometheus.Desc
}

// NewCollector creates a metrics collector. Any provider may be nil if unavailable.
func NewCollector(calls CallDirectionCounter, contacts ContactCounter, startTime time.Time) *Collector {
	return &Collector{
		calls:     calls,
		contacts:  contacts,
		startTime: startTime,

		callsTotalDesc: prometheus.NewDesc(
			"voxlog_calls_total",
			"Total number of stored call records",
			[]string{"direction"}, nil,
		),
		contactsTotalDesc: prometheus.NewDesc(
			"voxlog_contacts_total",
			"Total number of stored contacts",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"voxlog_uptime_seconds",
			"Seconds since the voxlog process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.callsTotalDesc
	ch <- c.contactsTotalDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries the store at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.calls != nil {
		counts, err := c.calls.CountByDirection(ctx)
		if err != nil {
			slog.Error("metrics: failed to count calls by direction", "error", err)
		} else {
			for _, dir := range []string{"inbound", "outbound", "unknown"} {
				ch <- prometheus.MustNewConstMetric(
					c.callsTotalDesc, prometheus.GaugeValue,
					float64(counts[dir]), dir,
				)
			}
		}
	}

	if c.contacts != nil {
		count, err := c.contacts.Count(ctx)
		if err != nil {
			slog.Error("metrics: failed to count contacts", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.contactsTotalDesc, prometheus.GaugeValue,
				float64(count),
			)
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
