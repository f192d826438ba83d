// Package report finalizes engagements: it archives the intelligence report
// locally and submits it to the external evaluation endpoint on a best-effort
// basis. Submission failures are counted, never surfaced.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Amita-5/honeypot-scam-detector/pkg/types"
)

// Stats exposes submission outcomes so silent failures stay visible to
// operators.
type Stats struct {
	Attempts  uint64 `json:"attempts"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
}

// Reporter submits finalized reports. Each Finalize call runs on its own
// goroutine; Wait blocks until in-flight submissions settle. The caller's
// response path is never blocked and never sees a submission error.
type Reporter struct {
	EndpointURL string
	HTTP        *http.Client
	MaxRetries  int
	Logger      *zap.Logger
	Archive     *Archive

	wg        sync.WaitGroup
	attempts  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// Finalize implements the engine's finalizer contract.
func (r *Reporter) Finalize(report types.IntelligenceReport) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.submit(report)
	}()
}

// Wait blocks until all in-flight submissions have completed.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

// Stats returns a snapshot of submission counters.
func (r *Reporter) Stats() Stats {
	return Stats{
		Attempts:  r.attempts.Load(),
		Delivered: r.delivered.Load(),
		Failed:    r.failed.Load(),
	}
}

func (r *Reporter) submit(report types.IntelligenceReport) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if r.Archive != nil {
		if err := r.Archive.Save(report); err != nil {
			logger.Warn("archive write failed",
				zap.String("session", report.SessionID), zap.Error(err))
		}
	}

	if r.EndpointURL == "" {
		return
	}

	attempts := r.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		r.attempts.Add(1)
		if err := r.post(report); err != nil {
			lastErr = err
			continue
		}
		r.delivered.Add(1)
		logger.Debug("report delivered", zap.String("session", report.SessionID))
		return
	}

	r.failed.Add(1)
	logger.Warn("report submission abandoned",
		zap.String("session", report.SessionID),
		zap.Int("attempts", attempts),
		zap.Error(lastErr))
}

func (r *Reporter) post(report types.IntelligenceReport) error {
	// Resolved locally: submissions run on their own goroutines and must not
	// write shared Reporter fields.
	client := r.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, r.EndpointURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("evaluation endpoint returned %d", res.StatusCode)
	}
	return nil
}
