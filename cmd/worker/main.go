// videotube-worker is a development stand-in for the external encoding
// fleet. It consumes queued jobs and reports progress back through the
// same callback endpoint real workers use, marking every requested
// variant ready without performing any transcoding.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videotube/videotube/internal/config"
	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/queue"
	"github.com/videotube/videotube/pkg/models"
)

type worker struct {
	apiBaseURL string
	node       string
	client     *http.Client
	log        *logging.Logger
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	apiBaseURL := os.Getenv("API_URL")
	if apiBaseURL == "" {
		apiBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	hostname, _ := os.Hostname()
	w := &worker{
		apiBaseURL: apiBaseURL,
		node:       "dev-worker-" + hostname,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down worker...")
		cancel()
	}()

	logger.Infof("Worker %s consuming jobs, reporting to %s", w.node, apiBaseURL)
	if err := q.ConsumeJobs(ctx, w.process); err != nil && ctx.Err() == nil {
		logger.Fatalf("Consumer stopped: %v", err)
	}
}

// process walks one job through processing to completed, reporting at
// each step the way a real encoder would.
func (w *worker) process(ctx context.Context, job *models.EncodingJob) error {
	w.log.WithJobID(job.ID).WithVideoID(job.VideoID).Info("picked up job")

	if err := w.callback(ctx, job.ID, models.CallbackRequest{
		Status:     models.JobStatusProcessing,
		WorkerNode: w.node,
	}); err != nil {
		return err
	}

	for _, pct := range []float64{25, 50, 75} {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		p := pct
		if err := w.callback(ctx, job.ID, models.CallbackRequest{ProgressPercent: &p}); err != nil {
			return err
		}
	}

	done := float64(100)
	final := models.CallbackRequest{
		Status:          models.JobStatusCompleted,
		ProgressPercent: &done,
		WorkerNode:      w.node,
		Variants:        make([]models.CallbackVariant, 0, len(job.VariantsRequested)),
	}

	hasHLS := false
	for _, spec := range job.VariantsRequested {
		ext := "m3u8"
		if spec.Container == models.FormatDASH {
			ext = "mpd"
		} else {
			hasHLS = true
		}
		final.Variants = append(final.Variants, models.CallbackVariant{
			Profile:        spec.Profile,
			Container:      spec.Container,
			ManifestPath:   fmt.Sprintf("videos/%s/%s/%s/playlist.%s", job.VideoID, spec.Container, spec.Profile, ext),
			SegmentsPath:   fmt.Sprintf("videos/%s/%s/%s/", job.VideoID, spec.Container, spec.Profile),
			AvgBitrateKbps: spec.BandwidthKbps,
		})
	}
	if hasHLS {
		final.MasterManifests.HLS = &models.ManifestRef{
			Path:    fmt.Sprintf("videos/%s/master.m3u8", job.VideoID),
			Version: 1,
		}
	}

	if err := w.callback(ctx, job.ID, final); err != nil {
		return err
	}

	w.log.WithJobID(job.ID).Info("job completed")
	return nil
}

func (w *worker) callback(ctx context.Context, jobID string, req models.CallbackRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal callback: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/videos/encoding/callback/%s", w.apiBaseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("callback failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("callback rejected with status %d", resp.StatusCode)
	}
	return nil
}
