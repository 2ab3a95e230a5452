package cloudstorage

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics from drivers. Implement it
// to integrate with a monitoring system; the interface is the integration
// point so the library carries no monitoring dependency.
type MetricsCollector interface {
	// RecordUpload is called after each upload with the bytes transferred.
	RecordUpload(bytes int64, duration time.Duration, err error)

	// RecordDownload is called after a download stream is opened.
	RecordDownload(duration time.Duration, err error)

	// RecordDelete is called after each blob or container delete.
	RecordDelete(duration time.Duration, err error)

	// RecordList is called after a blob listing finishes or fails,
	// covering the full iteration including backend pagination.
	RecordList(duration time.Duration, err error)
}

// NoopMetricsCollector discards all metrics. Drivers default to this.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpload(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordDownload(time.Duration, error)      {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)        {}
func (NoopMetricsCollector) RecordList(time.Duration, error)          {}

// BasicMetricsCollector keeps simple in-memory counters. Useful for
// debugging and tests without an external monitoring system.
type BasicMetricsCollector struct {
	UploadCount    atomic.Int64
	UploadErrors   atomic.Int64
	UploadBytes    atomic.Int64
	DownloadCount  atomic.Int64
	DownloadErrors atomic.Int64
	DeleteCount    atomic.Int64
	DeleteErrors   atomic.Int64
	ListCount      atomic.Int64
	ListErrors     atomic.Int64
}

func (c *BasicMetricsCollector) RecordUpload(bytes int64, _ time.Duration, err error) {
	c.UploadCount.Add(1)
	c.UploadBytes.Add(bytes)
	if err != nil {
		c.UploadErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordDownload(_ time.Duration, err error) {
	c.DownloadCount.Add(1)
	if err != nil {
		c.DownloadErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	c.DeleteCount.Add(1)
	if err != nil {
		c.DeleteErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordList(_ time.Duration, err error) {
	c.ListCount.Add(1)
	if err != nil {
		c.ListErrors.Add(1)
	}
}
