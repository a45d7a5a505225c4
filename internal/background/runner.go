package background

import (
	"context"
	"log"
	"sync"
	"time"

	"outfitter-service/internal/config"
	"outfitter-service/internal/services"
)

// Runner manages the periodic completion-draft jobs: dropping drafts whose
// contracts moved past the completion phase and nudging clients with idle
// drafts.
type Runner struct {
	draftSvc       *services.DraftService
	config         config.DraftConfig
	stopCh         chan struct{}
	wg             sync.WaitGroup
	cleanupTicker  *time.Ticker
	reminderTicker *time.Ticker
}

// NewRunner creates a new background runner
func NewRunner(draftSvc *services.DraftService, cfg config.DraftConfig) *Runner {
	return &Runner{
		draftSvc: draftSvc,
		config:   cfg,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background job processing
func (r *Runner) Start() {
	if !r.draftSvc.Enabled() {
		log.Println("Draft autosave disabled, background jobs not started")
		return
	}

	log.Println("Starting background job runner...")

	cleanupInterval := time.Duration(r.config.CleanupInterval) * time.Minute
	r.cleanupTicker = time.NewTicker(cleanupInterval)
	log.Printf("Draft cleanup job scheduled every %v", cleanupInterval)

	reminderInterval := time.Duration(r.config.ReminderInterval) * time.Hour
	r.reminderTicker = time.NewTicker(reminderInterval)
	log.Printf("Draft reminder job scheduled every %v", reminderInterval)

	r.wg.Add(1)
	go r.runCleanupJob()

	r.wg.Add(1)
	go r.runReminderJob()
}

// Stop gracefully stops all background jobs
func (r *Runner) Stop() {
	log.Println("Stopping background job runner...")
	close(r.stopCh)

	if r.cleanupTicker != nil {
		r.cleanupTicker.Stop()
	}
	if r.reminderTicker != nil {
		r.reminderTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Background job runner stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Println("Background job runner stop timeout - forcing shutdown")
	}
}

func (r *Runner) runCleanupJob() {
	defer r.wg.Done()

	// Run immediately to catch drafts orphaned while the service was down
	r.executeCleanup()

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.cleanupTicker.C:
			r.executeCleanup()
		}
	}
}

func (r *Runner) executeCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := r.draftSvc.CleanupOrphanedDrafts(ctx)
	if err != nil {
		log.Printf("Error in draft cleanup job: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Draft cleanup job removed %d stale drafts", removed)
	}
}

func (r *Runner) runReminderJob() {
	defer r.wg.Done()

	// Reminders wait for the first full interval
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.reminderTicker.C:
			r.executeReminders()
		}
	}
}

func (r *Runner) executeReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	sent, err := r.draftSvc.SendDueReminders(ctx)
	if err != nil {
		log.Printf("Error in draft reminder job: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("Draft reminder job sent %d reminders", sent)
	}
}
