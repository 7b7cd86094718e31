// Package dispatch implements the webhook event pipeline: parse, classify,
// act, persist.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/app/models"
	"github.com/hookline/hookline/internal/pkg/retry"
)

// Notifier pushes a text message to a platform user.
type Notifier interface {
	PushText(ctx context.Context, to, text string) error
}

// ProfileSource resolves a user id to a display name.
type ProfileSource interface {
	GetDisplayName(ctx context.Context, userID string) (string, error)
}

// Completer generates a reply for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NameCache sits in front of the ProfileSource. Implementations degrade to a
// miss on any internal failure.
type NameCache interface {
	Lookup(userID string) (string, bool)
	Store(userID, name string)
}

// DefaultFallbackReply is sent when every completion attempt failed.
const DefaultFallbackReply = "Sorry, I can't answer right now. Please try again in a moment."

// Options configures one dispatcher. The enabled-feature flags replace the
// per-deployment handler copies the service grew out of: one pipeline,
// selected behavior.
type Options struct {
	AdminUserID   string
	ForwardUserID string

	AdminRouting bool // route admin traffic to the admin store
	Forwarding   bool // push copies of standard messages to the forward target
	AIReply      bool // answer the forward target's own messages with AI

	// With AIReply disabled the forward target's own messages are recorded
	// like any other user's, but they are never forwarded back to the target.

	FallbackReply string
	Retry         retry.Policy
	CallTimeout   time.Duration // per outbound call, independent of retry count
}

// Result summarizes one dispatched batch.
type Result struct {
	Processed int
	Skipped   int
}

// Dispatcher orchestrates the per-request pipeline. It holds no mutable state
// across requests; concurrent Dispatch calls are safe as long as the injected
// collaborators are.
type Dispatcher struct {
	store     Store
	notifier  Notifier
	profiles  ProfileSource
	completer Completer
	names     NameCache
	opts      Options
}

func New(store Store, notifier Notifier, profiles ProfileSource, completer Completer, names NameCache, opts Options) *Dispatcher {
	if opts.FallbackReply == "" {
		opts.FallbackReply = DefaultFallbackReply
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 20 * time.Second
	}
	return &Dispatcher{
		store:     store,
		notifier:  notifier,
		profiles:  profiles,
		completer: completer,
		names:     names,
		opts:      opts,
	}
}

// Dispatch runs the classified pipeline over every event of the envelope, in
// their original order. Recoverable per-event faults (bad timestamp, failed
// profile lookup, exhausted AI retries, failed pushes) skip or degrade that
// unit only. The returned error is reserved for storage faults on an event's
// primary write; earlier events stay committed regardless.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Envelope) (Result, error) {
	reqID := uuid.NewString()
	log.Printf("[dispatch %s] received envelope with %d events", reqID, len(env.Events))

	adminID := ""
	if d.opts.AdminRouting {
		adminID = d.opts.AdminUserID
	}
	forwardID := ""
	if d.opts.AIReply {
		forwardID = d.opts.ForwardUserID
	}

	var res Result
	for i := range env.Events {
		ev := &env.Events[i]

		action := Classify(ev, adminID, forwardID)
		if action == ActionSkip {
			res.Skipped++
			continue
		}

		receivedAt, err := ev.Time()
		if err != nil {
			log.Printf("[dispatch %s] skipping event from %s: %v", reqID, ev.Source.UserID, err)
			res.Skipped++
			continue
		}

		switch action {
		case ActionAdminRecord:
			err = d.recordAdmin(ev, receivedAt)
		case ActionForwardAndReply:
			err = d.replyWithAI(ctx, reqID, ev)
		case ActionStandardRecord:
			err = d.recordStandard(ctx, reqID, ev, receivedAt)
		}
		if err != nil {
			return res, fmt.Errorf("event %d (%s): %w", i, ev.Source.UserID, err)
		}
		res.Processed++
	}

	log.Printf("[dispatch %s] done: processed=%d skipped=%d", reqID, res.Processed, res.Skipped)
	return res, nil
}

func (d *Dispatcher) recordAdmin(ev *Event, receivedAt time.Time) error {
	return d.store.AppendAdminMessage(&models.AdminMessage{
		UserID:     ev.Source.UserID,
		Text:       ev.Message.Text,
		ReceivedAt: receivedAt,
	})
}

// replyWithAI answers the forward target's own message. The completion call
// runs under the retry policy; when all attempts fail the canned fallback is
// sent instead, and the interaction row records it as a response.
func (d *Dispatcher) replyWithAI(ctx context.Context, reqID string, ev *Event) error {
	prompt := ev.Message.Text

	reply, err := retry.Do(ctx, d.opts.Retry, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.opts.CallTimeout)
		defer cancel()
		return d.completer.Complete(callCtx, prompt)
	})
	fallback := false
	if err != nil {
		log.Printf("[dispatch %s] AI completion exhausted for %s: %v", reqID, ev.Source.UserID, err)
		reply = d.opts.FallbackReply
		fallback = true
	}

	if err := d.pushText(ctx, ev.Source.UserID, reply); err != nil {
		log.Printf("[dispatch %s] failed to deliver AI reply to %s: %v", reqID, ev.Source.UserID, err)
	}

	return d.store.AppendInteraction(&models.AIInteraction{
		UserID:   ev.Source.UserID,
		Prompt:   prompt,
		Response: reply,
		Fallback: fallback,
	})
}

func (d *Dispatcher) recordStandard(ctx context.Context, reqID string, ev *Event, receivedAt time.Time) error {
	if err := d.store.AppendMessage(&models.Message{
		UserID:     ev.Source.UserID,
		Text:       ev.Message.Text,
		ReceivedAt: receivedAt,
	}); err != nil {
		return err
	}

	d.ensureProfile(ctx, reqID, ev.Source.UserID)

	if d.opts.Forwarding && d.opts.ForwardUserID != "" && ev.Source.UserID != d.opts.ForwardUserID {
		if err := d.pushText(ctx, d.opts.ForwardUserID, ev.Message.Text); err != nil {
			log.Printf("[dispatch %s] failed to forward message from %s: %v", reqID, ev.Source.UserID, err)
		}
	}
	return nil
}

// ensureProfile creates the profile row for a user the first time a standard
// message arrives. Every failure in here is recoverable: no profile row, but
// the message itself is already persisted.
func (d *Dispatcher) ensureProfile(ctx context.Context, reqID, userID string) {
	exists, err := d.store.ProfileExists(userID)
	if err != nil {
		log.Printf("[dispatch %s] profile existence check failed for %s: %v", reqID, userID, err)
		return
	}
	if exists {
		return
	}

	name, cached := "", false
	if d.names != nil {
		name, cached = d.names.Lookup(userID)
	}
	if !cached {
		if d.profiles == nil {
			return
		}
		name, err = retry.Do(ctx, d.opts.Retry, func(ctx context.Context) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, d.opts.CallTimeout)
			defer cancel()
			return d.profiles.GetDisplayName(callCtx, userID)
		})
		if err != nil {
			log.Printf("[dispatch %s] profile lookup failed for %s: %v", reqID, userID, err)
			return
		}
	}
	if name == "" {
		return
	}

	inserted, err := d.store.InsertProfileIfAbsent(&models.UserProfile{
		UserID:      userID,
		DisplayName: name,
	})
	if err != nil {
		log.Printf("[dispatch %s] profile insert failed for %s: %v", reqID, userID, err)
		return
	}
	if inserted && d.names != nil {
		d.names.Store(userID, name)
	}
}

func (d *Dispatcher) pushText(ctx context.Context, to, text string) error {
	if d.notifier == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, d.opts.CallTimeout)
	defer cancel()
	return d.notifier.PushText(callCtx, to, text)
}
