// Package service provides the operations of the hookpost command.
package service

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/ErikKalkoken/hookpost/internal/config"
	"github.com/ErikKalkoken/hookpost/internal/consoletable"
	"github.com/ErikKalkoken/hookpost/internal/dhook"
	"github.com/ErikKalkoken/hookpost/internal/feeditem"
	"github.com/ErikKalkoken/hookpost/internal/storage"
)

// maxConcurrentSends limits how many webhooks are posted to at the same time.
const maxConcurrentSends = 10

var ErrNotFound = errors.New("not found")

// Target is a webhook a message can be sent to.
// Only targets with a name are recorded in the statistics.
type Target struct {
	Name string
	URL  string
}

func (t Target) String() string {
	if t.Name != "" {
		return t.Name
	}
	return "URL"
}

// Service is a service for sending messages to Discord webhooks.
type Service struct {
	cfg    config.Config
	client *dhook.Client
	fp     *gofeed.Parser
	st     *storage.Storage
}

// New returns a new service. Statistics are not recorded when st is nil.
func New(cfg config.Config, st *storage.Storage, httpClient *http.Client) *Service {
	fp := gofeed.NewParser()
	fp.Client = httpClient
	s := &Service{
		cfg:    cfg,
		client: dhook.NewClient(httpClient),
		fp:     fp,
		st:     st,
	}
	return s
}

// Targets returns the targets for the given webhook names and URLs.
func (s *Service) Targets(names []string, urls []string) ([]Target, error) {
	targets := make([]Target, 0, len(names)+len(urls))
	for _, n := range names {
		wh, ok := s.cfg.Webhook(n)
		if !ok {
			return nil, fmt.Errorf("webhook \"%s\": %w", n, ErrNotFound)
		}
		targets = append(targets, Target{Name: wh.Name, URL: wh.URL})
	}
	for _, u := range urls {
		targets = append(targets, Target{URL: u})
	}
	return targets, nil
}

// Send posts a message to all targets.
//
// The message is validated and built once before anything is sent,
// so all targets receive the same payload.
// Each target gets exactly one independent delivery attempt.
// Failed deliveries are returned together.
func (s *Service) Send(ctx context.Context, m dhook.Message, targets []Target) error {
	if len(targets) == 0 {
		return errors.New("no webhooks specified")
	}
	if err := m.Validate(); err != nil {
		return err
	}
	dat, err := s.client.Build(m)
	if err != nil {
		return err
	}
	errs := make([]error, len(targets))
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentSends)
	for i, t := range targets {
		g.Go(func() error {
			err := s.client.NewWebhook(t.URL).Post(ctx, dat)
			s.recordDelivery(t, err)
			if err != nil {
				errs[i] = fmt.Errorf("webhook %s: %w", t, err)
				return nil
			}
			slog.Info("Message sent", "webhook", t.String())
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (s *Service) recordDelivery(t Target, err error) {
	if s.st == nil || t.Name == "" {
		return
	}
	if err := s.st.RecordDelivery(t.Name, err, time.Now()); err != nil {
		slog.Error("Failed to update webhook stats", "webhook", t.Name, "error", err)
	}
}

// Preview returns the JSON document which would be posted for a message.
func (s *Service) Preview(m dhook.Message) (string, error) {
	dat, err := s.client.Build(m)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, dat, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Ping sends a test message to a configured webhook.
func (s *Service) Ping(ctx context.Context, webhookName string) error {
	targets, err := s.Targets([]string{webhookName}, nil)
	if err != nil {
		return err
	}
	return s.Send(ctx, dhook.Message{Content: "Ping from hookpost"}, targets)
}

// PostLatestFeedItem posts the latest item of a configured feed to it's webhooks.
func (s *Service) PostLatestFeedItem(ctx context.Context, feedName string) error {
	cf, ok := s.cfg.Feed(feedName)
	if !ok {
		return fmt.Errorf("feed \"%s\": %w", feedName, ErrNotFound)
	}
	targets, err := s.Targets(cf.Webhooks, nil)
	if err != nil {
		return err
	}
	feed, err := s.fp.ParseURLWithContext(cf.URL, ctx)
	if err != nil {
		return fmt.Errorf("parse URL for feed: %w", err)
	}
	items := make([]*gofeed.Item, 0)
	for _, i := range feed.Items {
		if i.PublishedParsed != nil {
			items = append(items, i)
		}
	}
	if len(items) == 0 {
		return fmt.Errorf("no items found in feed")
	}
	latest := slices.MaxFunc(items, func(a, b *gofeed.Item) int {
		return a.PublishedParsed.Compare(*b.PublishedParsed)
	})
	fi := feeditem.New(feedName, feed, latest, false)
	m, err := fi.ToDiscordMessage(s.cfg.App.BrandingDisabled)
	if err != nil {
		return fmt.Errorf("convert item to Discord message: %w", err)
	}
	if err := s.Send(ctx, m, targets); err != nil {
		return fmt.Errorf("post item to webhook: %w", err)
	}
	slog.Info("Posted latest item", "feed", feedName, "title", latest.Title)
	return nil
}

// Statistics returns the delivery statistics of all webhooks as text table.
func (s *Service) Statistics() (string, error) {
	if s.st == nil {
		return "", errors.New("no storage")
	}
	stats, err := s.st.ListWebhookStats()
	if err != nil {
		return "", err
	}
	m := make(map[string]*storage.WebhookStats)
	for _, ws := range stats {
		m[ws.Name] = ws
	}
	for _, cw := range s.cfg.Webhooks {
		if _, ok := m[cw.Name]; !ok {
			m[cw.Name] = &storage.WebhookStats{Name: cw.Name}
		}
	}
	rows := make([]*storage.WebhookStats, 0, len(m))
	for _, ws := range m {
		rows = append(rows, ws)
	}
	slices.SortFunc(rows, func(a, b *storage.WebhookStats) int {
		return cmp.Compare(a.Name, b.Name)
	})
	tbl := consoletable.New("Webhooks", "Name", "Configured", "Sent", "Last", "Errors", "Last error", "Last status")
	for _, ws := range rows {
		_, configured := s.cfg.Webhook(ws.Name)
		var status string
		if ws.StatusLast != 0 {
			status = strconv.Itoa(ws.StatusLast)
		}
		tbl.AddRow(ws.Name, configured, ws.SentCount, ws.SentLast, ws.ErrorCount, ws.ErrorLast, status)
	}
	out := &strings.Builder{}
	tbl.Render(out)
	return out.String(), nil
}
