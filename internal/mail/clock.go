package mail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var defaultTimeServers = []string{
	"https://www.google.com",
	"https://www.cloudflare.com",
	"https://www.amazon.com",
}

// SkewClock corrects local time by the average offset reported in HTTP Date
// headers, so email freshness checks survive a drifting system clock.
type SkewClock struct {
	servers []string
	client  *http.Client
	log     zerolog.Logger

	offset time.Duration
	synced bool
}

func NewSkewClock(log zerolog.Logger, servers ...string) *SkewClock {
	if len(servers) == 0 {
		servers = defaultTimeServers
	}
	return &SkewClock{
		servers: servers,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

// Sync measures the offset against every server that answers.
func (c *SkewClock) Sync(ctx context.Context) error {
	var total time.Duration
	ok := 0

	for _, server := range c.servers {
		offset, err := c.measure(ctx, server)
		if err != nil {
			c.log.Debug().Str("server", server).Err(err).Msg("time sync failed")
			continue
		}
		total += offset
		ok++
		c.log.Debug().Str("server", server).Dur("offset", offset).Msg("time offset measured")
	}

	if ok == 0 {
		return fmt.Errorf("failed to sync time with any server")
	}

	c.offset = total / time.Duration(ok)
	c.synced = true
	c.log.Debug().Dur("offset", c.offset).Msg("clock synchronized")
	return nil
}

func (c *SkewClock) measure(ctx context.Context, url string) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	before := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	after := time.Now()

	header := resp.Header.Get("Date")
	if header == "" {
		return 0, fmt.Errorf("no Date header in response")
	}
	serverTime, err := http.ParseTime(header)
	if err != nil {
		return 0, fmt.Errorf("failed to parse Date header: %w", err)
	}

	// Assume the server stamped the response halfway through the round trip.
	local := before.Add(after.Sub(before) / 2)
	return serverTime.Sub(local), nil
}

// Now returns local time shifted by the measured offset, or local time if
// Sync never succeeded.
func (c *SkewClock) Now() time.Time {
	if !c.synced {
		return time.Now()
	}
	return time.Now().Add(c.offset)
}

func (c *SkewClock) Offset() time.Duration {
	return c.offset
}

func (c *SkewClock) Synced() bool {
	return c.synced
}
