package exporter

import (
	"github.com/jabl/fancyquota/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeebo/errs"
)

var Error = errs.Class("metrics textfile")

var (
	labels = []string{"principal", "kind", "mountpoint", "source"}

	descUsed = prometheus.NewDesc(
		"fancyquota_used_bytes",
		"Bytes used by the principal on the mountpoint",
		labels, nil,
	)
	descQuota = prometheus.NewDesc(
		"fancyquota_quota_bytes",
		"Soft limit in bytes",
		labels, nil,
	)
	descLimit = prometheus.NewDesc(
		"fancyquota_limit_bytes",
		"Hard limit in bytes, or the filesystem size for capacity rows",
		labels, nil,
	)
	descGrace = prometheus.NewDesc(
		"fancyquota_grace_deadline_seconds",
		"Unix time at which the grace period runs out",
		labels, nil,
	)
)

// ReportCollector exposes the rows of one report run.
type ReportCollector struct {
	rows []report.Row
}

func NewReportCollector(rows []report.Row) *ReportCollector {
	return &ReportCollector{rows: rows}
}

func (c *ReportCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descUsed
	ch <- descQuota
	ch <- descLimit
	ch <- descGrace
}

func (c *ReportCollector) Collect(ch chan<- prometheus.Metric) {
	for _, r := range c.rows {
		lv := []string{r.Principal, r.KindLabel(), r.Mountpoint, string(r.Source)}
		f := r.Figures
		ch <- prometheus.MustNewConstMetric(descUsed, prometheus.GaugeValue, float64(f.UsedBytes), lv...)
		if r.Source != report.SourceCapacity {
			ch <- prometheus.MustNewConstMetric(descQuota, prometheus.GaugeValue, float64(f.SoftLimitBytes), lv...)
		}
		ch <- prometheus.MustNewConstMetric(descLimit, prometheus.GaugeValue, float64(f.HardLimitBytes), lv...)
		if deadline, ok := f.Grace.Deadline(); ok {
			ch <- prometheus.MustNewConstMetric(descGrace, prometheus.GaugeValue, float64(deadline), lv...)
		}
	}
}

// WriteTextfile writes rows in the node_exporter textfile collector format.
// The file is replaced atomically.
func WriteTextfile(path string, rows []report.Row) error {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewReportCollector(rows)); err != nil {
		return Error.Wrap(err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return Error.Wrap(err)
	}
	return nil
}
