// Package app wires the subsystems into runnable sessions: once-off or on a
// cron schedule.
package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"matchbot/internal/classifier"
	"matchbot/internal/config"
	"matchbot/internal/device"
	"matchbot/internal/engine"
	engproviders "matchbot/internal/engine/providers"
	"matchbot/internal/executor"
	"matchbot/internal/extractor"
	"matchbot/internal/loop"
	"matchbot/internal/notifier"
	"matchbot/internal/perception"
	"matchbot/internal/perception/providers"
	"matchbot/internal/scheduler"
	"matchbot/internal/store"
	"matchbot/internal/types"
)

// App holds the wired subsystems. Sessions created from it run one at a time;
// a scheduled session that fires while another is still running is skipped.
type App struct {
	cfg      *config.Config
	dev      *device.Device
	screens  *classifier.Classifier
	reader   perception.Provider
	profiles *extractor.Extractor
	eng      *engine.Engine
	st       *store.Store

	sessions *semaphore.Weighted
}

// New connects to the device and builds the pipeline.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client := device.NewClient(cfg.Device.Address)
	dev, err := client.Device(ctx, cfg.Device.Serial)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}

	provider := NewPerception(cfg.Perception)
	strategy := engproviders.NewAnthropicStrategy(cfg.Decision.APIKey, cfg.Decision.Model)
	retryDelay := time.Duration(cfg.Timing.AdapterRetryDelaySec) * time.Second

	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	st, err := store.New(filepath.Join(cacheDir, "matchbot.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &App{
		cfg:      cfg,
		dev:      dev,
		screens:  classifier.New(provider, cfg.Perception.ConfidenceThreshold),
		reader:   provider,
		profiles: extractor.New(cfg.Session.MaxFrames, cfg.Criteria.PreferredInterests),
		eng:      engine.New(strategy, retryDelay),
		st:       st,
		sessions: semaphore.NewWeighted(1),
	}, nil
}

// NewPerception builds the perception provider from config: the vision
// endpoint classifies either way; "tesseract" swaps text extraction to the
// local OCR binary.
func NewPerception(cfg config.PerceptionConfig) perception.Provider {
	vision := providers.NewVisionProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	if cfg.Provider == "tesseract" {
		return perception.Compose(vision, providers.NewTesseractProvider(cfg.TesseractPath))
	}
	return vision
}

// Close releases the store.
func (a *App) Close() error {
	return a.st.Close()
}

// RunSession runs one full bot session. Returns nil when the session halts
// cleanly, including when it is skipped because one is already in progress.
func (a *App) RunSession(ctx context.Context) error {
	if !a.sessions.TryAcquire(1) {
		log.Println("Session already in progress, skipping this run")
		return nil
	}
	defer a.sessions.Release(1)

	sess := &store.Session{
		ID:        uuid.NewString(),
		Serial:    a.dev.Serial,
		StartedAt: time.Now(),
	}
	if err := a.st.SaveSession(sess); err != nil {
		log.Printf("Failed to record session start: %v", err)
	}

	if n, err := a.st.DecidedToday(); err == nil {
		log.Printf("Starting session %s on device %s (%d decisions already today)", sess.ID, a.dev.Serial, n)
	}

	var dev loop.Device = a.dev
	if a.cfg.Device.SaveCaptures {
		dev = &savingDevice{Device: a.dev}
	}

	act := executor.New(a.dev, a.screens, a.cfg.Session.VerifyRetries,
		time.Duration(a.cfg.Timing.TapDelayMs)*time.Millisecond,
		time.Duration(a.cfg.Timing.TextDelayMs)*time.Millisecond)
	sink := &storeSink{st: a.st, sessionID: sess.ID}

	l := loop.New(dev, a.screens, a.reader, a.profiles, a.eng, act, sink, a.cfg)
	runErr := l.Run(ctx)

	state := l.State()
	sess.EndedAt = time.Now()
	sess.ProfilesProcessed = state.ProfilesProcessed
	sess.Liked = state.Liked
	sess.Passed = state.Passed
	sess.Commented = state.Commented
	sess.Abandoned = state.Abandoned
	sess.ExecutionFailures = state.ExecutionFailures
	sess.HaltReason = state.HaltReason
	if err := a.st.CloseSession(sess); err != nil {
		log.Printf("Failed to record session end: %v", err)
	}

	log.Printf("Session %s finished: %d profiles (%d liked, %d passed, %d commented, %d abandoned) - %s",
		sess.ID, state.ProfilesProcessed, state.Liked, state.Passed, state.Commented,
		state.Abandoned, state.HaltReason)

	a.sendReport(sess)

	return runErr
}

// sendReport emails the session summary when notifications are configured.
// Delivery problems are logged, never fatal.
func (a *App) sendReport(sess *store.Session) {
	if !a.cfg.Email.Enabled {
		return
	}

	n, err := notifier.NewFromConfig(a.cfg.Email)
	if err != nil {
		log.Printf("Notifier unavailable: %v", err)
		return
	}

	decisions, err := a.st.SessionDecisions(sess.ID)
	if err != nil {
		log.Printf("Failed to load decisions for report: %v", err)
	}
	if err := n.SendSessionReport(sess, decisions); err != nil {
		log.Printf("Failed to send session report: %v", err)
		return
	}
	log.Printf("Session report sent to %s", a.cfg.Email.To)
}

// RunScheduled registers the session on the configured cron schedule and
// blocks until the context ends, then waits for a running session to finish.
func (a *App) RunScheduled(ctx context.Context) error {
	sched, err := scheduler.New(a.cfg.Session.Timezone)
	if err != nil {
		return err
	}

	if err := sched.AddJob("session", a.cfg.Session.Schedule, a.RunSession); err != nil {
		return err
	}

	sched.Start()
	for _, info := range sched.ListJobs() {
		log.Printf("Next %s run: %v", info.Name, info.NextRun)
	}

	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

// savingDevice mirrors every successful screencap into the capture cache.
type savingDevice struct {
	*device.Device
}

func (d *savingDevice) Screencap(ctx context.Context) ([]byte, error) {
	img, err := d.Device.Screencap(ctx)
	if err != nil {
		return nil, err
	}
	capture := &types.Capture{ID: uuid.NewString(), Serial: d.Serial, Image: img, TakenAt: time.Now()}
	if _, err := store.SaveCapture(capture); err != nil {
		log.Printf("Failed to cache capture: %v", err)
	}
	return img, nil
}

// storeSink persists each decision tuple to the audit log.
type storeSink struct {
	st        *store.Store
	sessionID string
}

func (s *storeSink) Record(rec *types.ProfileRecord, decision types.Decision, result types.ExecutionResult) {
	err := s.st.SaveDecision(&store.DecisionRecord{
		ID:           decision.ID,
		SessionID:    s.sessionID,
		ProfileName:  rec.Name,
		ProfileAge:   rec.Age,
		Action:       string(decision.Action),
		Comment:      decision.Comment,
		Confidence:   decision.Confidence,
		Rationale:    decision.Rationale,
		Status:       string(result.Status),
		StatusReason: result.Reason,
		DecidedAt:    time.Now(),
	})
	if err != nil {
		log.Printf("Failed to record decision %s: %v", decision.ID, err)
	}
}
