package controllers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hookline/hookline/internal/pkg/database"
	"github.com/hookline/hookline/internal/pkg/dispatch"
	"github.com/hookline/hookline/internal/pkg/webhook"
)

// ChatSignatureHeader carries the base64 HMAC-SHA256 of the raw body.
const ChatSignatureHeader = "X-Line-Signature"

const requestTimeout = 60 * time.Second

// WebhookController handles the chat-platform event webhook. The dispatcher
// is rebuilt per request on top of a request-scoped unit of work; the
// controller itself carries only read-only configuration and the outbound
// collaborators.
type WebhookController struct {
	notifier  dispatch.Notifier
	profiles  dispatch.ProfileSource
	completer dispatch.Completer
	names     dispatch.NameCache
	opts      dispatch.Options
	secret    string
}

func NewWebhookController(
	notifier dispatch.Notifier,
	profiles dispatch.ProfileSource,
	completer dispatch.Completer,
	names dispatch.NameCache,
	opts dispatch.Options,
	secret string,
) *WebhookController {
	return &WebhookController{
		notifier:  notifier,
		profiles:  profiles,
		completer: completer,
		names:     names,
		opts:      opts,
		secret:    secret,
	}
}

// HandleChatEvents verifies the signature before anything touches the body,
// then parses and dispatches the batch. Signature failures are rejected with
// 403 and no processing; a structurally invalid body fails the request; all
// other faults are handled inside the dispatcher.
func (wc *WebhookController) HandleChatEvents(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if !webhook.VerifyChatSignature(rawBody, c.Get(ChatSignatureHeader), wc.secret) {
		log.Printf("chat webhook rejected: invalid signature")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "invalid signature",
		})
	}

	log.Printf("chat webhook accepted: %d bytes", len(rawBody))

	envelope, err := dispatch.ParseEnvelope(rawBody)
	if err != nil {
		log.Printf("chat webhook failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "malformed payload",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	store := dispatch.NewStoreContext(ctx, database.GetDB())
	dispatcher := dispatch.New(store, wc.notifier, wc.profiles, wc.completer, wc.names, wc.opts)

	if _, err := dispatcher.Dispatch(ctx, envelope); err != nil {
		log.Printf("chat webhook failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "storage failure",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
