package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const timePath = "/api/v2/public/time"

// TimeSync holds the offset between the local clock and the exchange server
// clock. Signing timestamps use the corrected time so that requests are not
// rejected for clock skew. An explicit value passed into the client, never a
// package global.
type TimeSync struct {
	offsetMS atomic.Int64
}

// NewTimeSync creates a TimeSync with zero offset.
func NewTimeSync() *TimeSync {
	return &TimeSync{}
}

// Sync fetches the server time and records the offset to the local clock.
// Failure degrades to the local clock and is not fatal.
func (t *TimeSync) Sync(ctx context.Context, baseURL string, logger zerolog.Logger) error {
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+timePath, nil)
	if err != nil {
		return fmt.Errorf("building time request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("Time sync failed, using local clock")
		return fmt.Errorf("fetching server time: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data struct {
			ServerTime string `json:"serverTime"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		logger.Warn().Err(err).Msg("Time sync response unreadable, using local clock")
		return fmt.Errorf("decoding server time: %w", err)
	}

	serverMS, err := strconv.ParseInt(envelope.Data.ServerTime, 10, 64)
	if err != nil || serverMS == 0 {
		logger.Warn().Str("server_time", envelope.Data.ServerTime).Msg("Server timestamp unusable, using local clock")
		return fmt.Errorf("parsing server time %q: %w", envelope.Data.ServerTime, err)
	}

	localMS := time.Now().UnixMilli()
	t.offsetMS.Store(serverMS - localMS)

	logger.Info().Int64("offset_ms", serverMS-localMS).Msg("Time synced with exchange")
	return nil
}

// Timestamp returns the corrected timestamp in milliseconds, as a string for
// signing and headers.
func (t *TimeSync) Timestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli()+t.offsetMS.Load(), 10)
}

// OffsetMS returns the current clock offset in milliseconds.
func (t *TimeSync) OffsetMS() int64 {
	return t.offsetMS.Load()
}
