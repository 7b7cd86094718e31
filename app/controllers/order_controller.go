package controllers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/hookline/hookline/internal/pkg/database"
	"github.com/hookline/hookline/internal/pkg/orders"
	"github.com/hookline/hookline/internal/pkg/webhook"
)

// OrderSignatureHeader carries the hex HMAC-SHA256 of the raw body.
const OrderSignatureHeader = "X-Shop-Signature"

// OrderController handles the shop order ingestion webhook, which uses its
// own secret and signature encoding.
type OrderController struct {
	secret string
}

func NewOrderController(secret string) *OrderController {
	return &OrderController{secret: secret}
}

func (oc *OrderController) HandleOrderEvent(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if !webhook.VerifyOrderSignature(rawBody, c.Get(OrderSignatureHeader), oc.secret) {
		log.Printf("order webhook rejected: invalid signature")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  "error",
			"message": "invalid signature",
		})
	}

	payload, err := orders.ParsePayload(rawBody)
	if err != nil {
		log.Printf("order webhook failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "malformed payload",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	order, err := orders.NewService(database.GetDB()).Ingest(ctx, payload)
	if err != nil {
		log.Printf("order webhook failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "order ingestion failed",
		})
	}

	log.Printf("order %s ingested with %d items", order.OrderNumber, len(order.Items))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "received"})
}
