// Package stats counts gateway events and greeting outcomes,
// and optionally submits them to InfluxDB once a minute.
package stats

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/starshine-sys/greeter/common/log"
	"github.com/starshine-sys/greeter/events/handler"
)

// Greeting outcomes, counted alongside gateway events.
const (
	MemberGreeted  = "MemberGreeted"
	RoleGranted    = "RoleGranted"
	GreetSkipped   = "GreetSkipped"
	GreetFailed    = "GreetFailed"
	GreetDuplicate = "GreetDuplicate"
)

// Client counts events. A nil *Client is valid and discards everything.
type Client struct {
	influx influxdb2.Client
	write  api.WriteAPI

	m  map[string]uint32
	mu sync.Mutex
}

// Config is the InfluxDB connection info.
type Config struct {
	URL          string `toml:"url"`
	Token        string `toml:"token"`
	Organization string `toml:"organization"`
	Bucket       string `toml:"bucket"`
}

// New creates a new client. If c.URL is empty, counts are kept in memory but never submitted.
func New(c Config) *Client {
	client := &Client{
		m: make(map[string]uint32),
	}

	if c.URL != "" {
		client.influx = influxdb2.NewClientWithOptions(c.URL, c.Token,
			influxdb2.DefaultOptions().SetBatchSize(20))
		client.write = client.influx.WriteAPI(c.Organization, c.Bucket)
	}

	return client
}

// Handle counts every event it is called with. It never fails.
func (c *Client) Handle(_ context.Context, ev any) error {
	c.RegisterEvent(handler.EventName(ev))
	return nil
}

// RegisterEvent registers an event name.
// Separate from Handle to allow us to count our own events (greeting outcomes).
func (c *Client) RegisterEvent(name string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.m[name]++
	c.mu.Unlock()
}

// Count returns the number of times name was registered since the last submission.
func (c *Client) Count(name string) uint32 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[name]
}

// Run submits metrics every minute until ctx is cancelled, then flushes pending writes and closes the InfluxDB client.
// It returns immediately if no InfluxDB URL was configured.
func (c *Client) Run(ctx context.Context) {
	if c == nil || c.write == nil {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go c.submit()
		case <-ctx.Done():
			c.write.Flush()
			c.influx.Close()
			return
		}
	}
}

// reset returns the current counts and zeroes them.
func (c *Client) reset() (counts map[string]any, total uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts = make(map[string]any, len(c.m))
	for k, v := range c.m {
		total += v
		counts[k] = v
		c.m[k] = 0
	}
	return counts, total
}

func (c *Client) submit() {
	log.Debug("Submitting metrics to InfluxDB")

	counts, totalEvents := c.reset()
	if len(counts) > 0 {
		c.write.WritePoint(influxdb2.NewPoint("events", nil, counts, time.Now()))
	}

	stats := runtime.MemStats{}
	runtime.ReadMemStats(&stats)

	data := map[string]any{
		"events":      totalEvents,
		"alloc":       stats.Alloc,
		"sys":         stats.Sys,
		"total_alloc": stats.TotalAlloc,
		"goroutines":  runtime.NumGoroutine(),
	}

	sysMem, err := mem.VirtualMemory()
	if err != nil {
		log.Errorf("getting system memory: %v", err)
	} else {
		data["total_sys"] = sysMem.Used
		data["total_sys_percent"] = sysMem.UsedPercent
	}

	cpuData, err := cpu.Percent(time.Second, true)
	if err != nil {
		log.Errorf("getting cpu info: %v", err)
	} else {
		for i, d := range cpuData {
			data[fmt.Sprintf("cpu_%d", i)] = d
		}
	}

	c.write.WritePoint(influxdb2.NewPoint("statistics", nil, data, time.Now()))
}
