// Package scheduler runs the process-lifetime background tasks: a keep-alive
// ping against the public URL and a periodic inactivity sweep that nudges
// idle users with a push notification.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"chatrelay/internal/push"
	"chatrelay/internal/store"
)

const lastSeenStore = "last_seen"

const reengagementBody = "It's been a while! Come back and continue the conversation."

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	httpClient *http.Client
	selfURL    string

	store      *store.Store
	registry   *push.Registry
	dispatcher *push.Dispatcher
	threshold  time.Duration
	now        func() time.Time
}

func New(httpClient *http.Client, selfURL string, s *store.Store, r *push.Registry, d *push.Dispatcher, threshold time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		ctx:        ctx,
		cancel:     cancel,
		httpClient: httpClient,
		selfURL:    selfURL,
		store:      s,
		registry:   r,
		dispatcher: d,
		threshold:  threshold,
		now:        time.Now,
	}
}

func (s *Scheduler) Start(pingEvery, sweepEvery time.Duration) error {
	if s.selfURL != "" {
		if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", pingEvery), s.ping); err != nil {
			return err
		}
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", sweepEvery), s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("scheduler started: ping every %s, sweep every %s", pingEvery, sweepEvery)
	return nil
}

// Stop drains running jobs and cancels the task context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Printf("scheduler stopped")
}

func (s *Scheduler) ping() {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.selfURL, nil)
	if err != nil {
		log.Printf("keep-alive request build failed: %v", err)
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("keep-alive ping failed: %v", err)
		return
	}
	_ = resp.Body.Close()
}

// sweep finds users idle past the threshold, sends one re-engagement
// broadcast and clears their entries so each idle stretch notifies once.
func (s *Scheduler) sweep() {
	idle := 0
	err := s.store.Do(lastSeenStore, func() error {
		seen := map[string]string{}
		s.store.Load(lastSeenStore, &seen)
		cutoff := s.now().Add(-s.threshold)
		for userID, stamp := range seen {
			at, err := time.Parse(time.RFC3339, stamp)
			if err != nil || at.Before(cutoff) {
				delete(seen, userID)
				idle++
			}
		}
		if idle == 0 {
			return nil
		}
		return s.store.Save(lastSeenStore, seen)
	})
	if err != nil {
		log.Printf("inactivity sweep failed: %v", err)
		return
	}
	if idle == 0 {
		return
	}
	tokens := s.registry.All()
	log.Printf("inactivity sweep: %d idle users, notifying %d tokens", idle, len(tokens))
	if len(tokens) > 0 {
		s.dispatcher.Dispatch(tokens, reengagementBody)
	}
}
