/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"collect-ledger-go/internal/cache"
	"collect-ledger-go/internal/metrics"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/notify"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

const anonymousPayer = "Anonymous"

// Directory resolves the people and collects an event refers to
type Directory interface {
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetCollect(ctx context.Context, collectId string) (*models.Collect, error)
}

// Pipeline reacts to committed ledger mutations. Emit clears the read cache
// synchronously and hands the event to a dispatcher goroutine that turns
// creation events into notification jobs.
type Pipeline struct {
	invalidator cache.CacheInvalidator
	queue       notify.Queue
	renderer    *notify.Renderer
	directory   Directory

	events   chan models.Event
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func New(invalidator cache.CacheInvalidator, queue notify.Queue, renderer *notify.Renderer, directory Directory, buffer int) *Pipeline {
	if buffer <= 0 {
		buffer = 256
	}
	if renderer == nil {
		renderer = notify.DefaultRenderer()
	}
	return &Pipeline{
		invalidator: invalidator,
		queue:       queue,
		renderer:    renderer,
		directory:   directory,
		events:      make(chan models.Event, buffer),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Emit must only be called after the mutation committed. It never blocks on
// notification work; when the dispatch buffer is full the event is dropped.
func (p *Pipeline) Emit(ctx context.Context, event models.Event) {
	metrics.CacheInvalidationsTotal.Inc()
	if err := p.invalidator.InvalidateAll(ctx); err != nil {
		zap.L().Warn("Failed to invalidate read cache",
			zap.String("event", string(event.Type)),
			zap.String("collect_id", event.CollectId),
			zap.Error(err))
	}

	if !event.Type.IsCreation() {
		return
	}

	select {
	case p.events <- event:
	default:
		metrics.EventsDroppedTotal.Inc()
		zap.L().Warn("Event buffer full, dropping notifications",
			zap.String("event", string(event.Type)),
			zap.String("collect_id", event.CollectId))
	}
}

// Start launches the dispatcher
func (p *Pipeline) Start(ctx context.Context) {
	zap.L().Info("Starting notification pipeline", zap.Int("buffer", cap(p.events)))
	go p.dispatchLoop(ctx)
}

// Stop dispatches every buffered event before returning
func (p *Pipeline) Stop() {
	zap.L().Info("Stopping notification pipeline")
	p.stopOnce.Do(func() { close(p.stopChan) })
	<-p.doneChan
	zap.L().Info("Notification pipeline stopped")
}

func (p *Pipeline) dispatchLoop(ctx context.Context) {
	defer close(p.doneChan)

	for {
		select {
		case event := <-p.events:
			p.dispatch(ctx, event)
		case <-p.stopChan:
			p.drain(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) drain(ctx context.Context) {
	for {
		select {
		case event := <-p.events:
			p.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (p *Pipeline) dispatch(ctx context.Context, event models.Event) {
	jobs, err := p.JobsFor(ctx, event)
	if err != nil {
		zap.L().Error("Failed to build notifications",
			zap.String("event", string(event.Type)),
			zap.String("collect_id", event.CollectId),
			zap.Error(err))
		return
	}

	for _, job := range jobs {
		if err := p.queue.Enqueue(ctx, job); err != nil {
			metrics.RecordNotification(string(job.Kind), metrics.NotificationFailed)
			zap.L().Error("Failed to enqueue notification",
				zap.String("kind", string(job.Kind)),
				zap.String("to", job.To),
				zap.Error(err))
			continue
		}
		metrics.RecordNotification(string(job.Kind), metrics.NotificationQueued)
	}
}

// JobsFor applies the notification rules to a creation event. Non-creation
// events produce no jobs.
func (p *Pipeline) JobsFor(ctx context.Context, event models.Event) ([]notify.Job, error) {
	switch event.Type {
	case models.EventCollectCreated:
		return p.collectCreatedJobs(ctx, event)
	case models.EventPaymentCreated:
		return p.paymentCreatedJobs(ctx, event)
	default:
		return nil, nil
	}
}

func (p *Pipeline) collectCreatedJobs(ctx context.Context, event models.Event) ([]notify.Job, error) {
	collect, err := p.eventCollect(ctx, event)
	if err != nil {
		return nil, err
	}
	author, err := p.lookupUser(ctx, collect.AuthorId)
	if err != nil {
		return nil, err
	}
	if author == nil || author.Email == "" {
		skip(notify.KindCollectCreated, "author has no contact address", collect.Id)
		return nil, nil
	}

	job, err := p.render(notify.KindCollectCreated, author.Email, notify.MessageData{
		RecipientName: author.Name,
		CollectId:     collect.Id,
		CollectTitle:  collect.Title,
	})
	if err != nil {
		return nil, err
	}
	job.CollectId = collect.Id
	return []notify.Job{job}, nil
}

func (p *Pipeline) paymentCreatedJobs(ctx context.Context, event models.Event) ([]notify.Job, error) {
	payment := event.Payment
	if payment == nil {
		return nil, fmt.Errorf("payment event for collect %s carries no payment", event.CollectId)
	}
	collect, err := p.eventCollect(ctx, event)
	if err != nil {
		return nil, err
	}

	var payer *models.User
	if payment.UserId != nil {
		if payer, err = p.lookupUser(ctx, *payment.UserId); err != nil {
			return nil, err
		}
	}

	data := notify.MessageData{
		CollectId:    collect.Id,
		CollectTitle: collect.Title,
		Amount:       payment.Amount.StringFixed(2),
		PayerName:    payerName(payer, payment),
	}
	if payment.Comment != nil {
		data.Comment = *payment.Comment
	}

	var jobs []notify.Job

	if payer == nil || payer.Email == "" {
		skip(notify.KindPaymentRecorded, "payer has no contact address", collect.Id)
	} else {
		payerData := data
		payerData.RecipientName = payer.Name
		job, err := p.render(notify.KindPaymentRecorded, payer.Email, payerData)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	author, err := p.lookupUser(ctx, collect.AuthorId)
	if err != nil {
		return nil, err
	}
	switch {
	case author == nil || author.Email == "":
		skip(notify.KindPaymentReceived, "author has no contact address", collect.Id)
	case payer != nil && payer.Id == author.Id:
		skip(notify.KindPaymentReceived, "author paid their own collect", collect.Id)
	default:
		authorData := data
		authorData.RecipientName = author.Name
		job, err := p.render(notify.KindPaymentReceived, author.Email, authorData)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	for i := range jobs {
		jobs[i].CollectId = collect.Id
		jobs[i].PaymentId = payment.Id
	}
	return jobs, nil
}

func (p *Pipeline) eventCollect(ctx context.Context, event models.Event) (*models.Collect, error) {
	if event.Collect != nil {
		return event.Collect, nil
	}
	collect, err := p.directory.GetCollect(ctx, event.CollectId)
	if err != nil {
		return nil, fmt.Errorf("failed to load collect: %w", err)
	}
	return collect, nil
}

// lookupUser returns nil for users deleted since the event was emitted
func (p *Pipeline) lookupUser(ctx context.Context, userId string) (*models.User, error) {
	user, err := p.directory.GetUserById(ctx, userId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (p *Pipeline) render(kind notify.Kind, to string, data notify.MessageData) (notify.Job, error) {
	subject, body, err := p.renderer.Render(kind, data)
	if err != nil {
		return notify.Job{}, err
	}
	return notify.Job{
		Kind:      kind,
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// payerName is what the author sees. Anonymous payments hide the payer even
// when a user is attached.
func payerName(payer *models.User, payment *models.Payment) string {
	if payer == nil || payment.IsAnonymous {
		return anonymousPayer
	}
	return payer.Name
}

func skip(kind notify.Kind, reason, collectId string) {
	metrics.RecordNotification(string(kind), metrics.NotificationSkipped)
	zap.L().Debug("Skipping notification",
		zap.String("kind", string(kind)),
		zap.String("reason", reason),
		zap.String("collect_id", collectId))
}
