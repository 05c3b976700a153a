// Package notify delivers short job messages to webhook and slack destinations
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

// Params for NewService
type Params struct {
	Webhooks      []string      // webhook urls, text is posted as the request body
	SlackToken    string        // slack bot token, required for SlackChannels
	SlackChannels []string      // slack channel names
	Timeout       time.Duration // limit for a single delivery attempt
	Attempts      int           // delivery attempts per destination
	Concurrency   int           // destinations sent in parallel
	BaseURL       string        // added as a link to messages if set
}

// Notifier is a single delivery channel, satisfied by go-pkgz/notify senders
type Notifier interface {
	fmt.Stringer
	Schema() string
	Send(ctx context.Context, destination, text string) error
}

type destination struct {
	notifier Notifier
	target   string
}

// Service sends job messages to all configured destinations
type Service struct {
	destinations []destination
	repeater     interface {
		Do(ctx context.Context, fun func() error, errors ...error) (err error)
	}
	timeout     time.Duration
	concurrency int
	baseURL     string
}

// NewService makes notification service, returns nil if no destinations are configured
func NewService(p Params) *Service {
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Second
	}
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}

	var dests []destination
	if len(p.Webhooks) > 0 {
		wh := notify.NewWebhook(notify.WebhookParams{Timeout: p.Timeout, Headers: []string{"Content-Type:text/plain; charset=utf-8"}})
		for _, u := range p.Webhooks {
			if u = strings.TrimSpace(u); u != "" {
				dests = append(dests, destination{notifier: wh, target: u})
			}
		}
	}
	if p.SlackToken != "" && len(p.SlackChannels) > 0 {
		sl := notify.NewSlack(p.SlackToken)
		for _, ch := range p.SlackChannels {
			if ch = strings.TrimPrefix(strings.TrimSpace(ch), "#"); ch != "" {
				dests = append(dests, destination{notifier: sl, target: "slack:" + ch + "?title=montaj"})
			}
		}
	}
	if len(dests) == 0 {
		return nil
	}

	res := &Service{
		destinations: dests,
		repeater: repeater.New(&strategy.Backoff{Repeats: p.Attempts, Duration: 500 * time.Millisecond,
			Factor: 2, Jitter: true}),
		timeout:     p.Timeout,
		concurrency: p.Concurrency,
		baseURL:     strings.TrimSuffix(p.BaseURL, "/"),
	}
	log.Printf("[INFO] notifications enabled for %d destination(s)", len(dests))
	return res
}

// JobCreated sends message about a new job
func (s *Service) JobCreated(ctx context.Context, job persistence.Job) error {
	msg := fmt.Sprintf("Yeni iş #%d: %s (%s), tarih %s", job.ID, job.Customer, job.JobType.Label(), job.Date)
	if job.Address != "" {
		msg += ", adres: " + job.Address
	}
	return s.Send(ctx, s.withLink(msg))
}

// JobDone sends message about a job moved to completed or finished
func (s *Service) JobDone(ctx context.Context, job persistence.Job) error {
	msg := fmt.Sprintf("İş #%d %s: %s (%s)", job.ID, strings.ToLower(job.Status.Label()), job.Customer,
		job.JobType.Label())
	if len(job.Team) > 0 {
		msg += ", ekip: " + persistence.JoinTeam(job.Team)
	}
	if job.DurationDays > 0 && job.Status != enums.StatusPending {
		msg += fmt.Sprintf(", %d gün", job.DurationDays)
	}
	return s.Send(ctx, s.withLink(msg))
}

// Send delivers text to all destinations in parallel, each one retried by the repeater.
// Returns joined errors of failed destinations.
func (s *Service) Send(ctx context.Context, text string) error {
	var mu sync.Mutex
	var errs []error
	gr := syncs.NewSizedGroup(s.concurrency)
	for _, d := range s.destinations {
		gr.Go(func(context.Context) {
			err := s.repeater.Do(ctx, func() error {
				sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
				defer cancel()
				return d.notifier.Send(sendCtx, d.target, text)
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", d.notifier.Schema(), err))
				mu.Unlock()
				return
			}
			log.Printf("[DEBUG] notification sent via %s", d.notifier)
		})
	}
	gr.Wait()
	return errors.Join(errs...)
}

func (s *Service) withLink(msg string) string {
	if s.baseURL == "" {
		return msg
	}
	return msg + "\n" + s.baseURL + "/"
}
