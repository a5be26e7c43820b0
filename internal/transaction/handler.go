package transaction

import (
	"context"
	"errors"
	"strconv"
	"time"

	"tokopos-backend/internal/auth"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/inventory"
	"tokopos-backend/internal/models"
	"tokopos-backend/internal/payment"

	"github.com/gofiber/fiber/v2"
)

type ItemResponse struct {
	ProductID uint  `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Subtotal  int64 `json:"subtotal"`
}

type TransactionResponse struct {
	ID                uint                 `json:"id"`
	Number            string               `json:"number"`
	Subtotal          int64                `json:"subtotal"`
	TaxAmount         int64                `json:"tax_amount"`
	Discount          int64                `json:"discount"`
	FinalAmount       int64                `json:"final_amount"`
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	PaymentStatus     models.PaymentStatus `json:"payment_status"`
	GatewayPaymentID  string               `json:"gateway_payment_id,omitempty"`
	GatewayPaymentURL string               `json:"gateway_payment_url,omitempty"`
	CashierID         uint                 `json:"cashier_id"`
	PaidAt            *time.Time           `json:"paid_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	Items             []ItemResponse       `json:"items"`
}

func toResponse(trx *models.Transaction) TransactionResponse {
	items := make([]ItemResponse, 0, len(trx.Items))
	for _, item := range trx.Items {
		items = append(items, ItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return TransactionResponse{
		ID:                trx.ID,
		Number:            trx.Number,
		Subtotal:          trx.Subtotal,
		TaxAmount:         trx.TaxAmount,
		Discount:          trx.Discount,
		FinalAmount:       trx.FinalAmount,
		PaymentMethod:     trx.PaymentMethod,
		PaymentStatus:     trx.PaymentStatus,
		GatewayPaymentID:  trx.GatewayPaymentID,
		GatewayPaymentURL: trx.GatewayPaymentURL,
		CashierID:         trx.CashierID,
		PaidAt:            trx.PaidAt,
		CreatedAt:         trx.CreatedAt,
		Items:             items,
	}
}

// POST /api/transactions
func CreateHandler(gw payment.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cashierID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		trx, err := Create(database.DB, gw, body, cashierID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoItems),
				errors.Is(err, ErrInvalidQuantity),
				errors.Is(err, ErrInvalidPaymentMethod),
				errors.Is(err, ErrInvalidDiscount):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrCashierNotFound),
				errors.Is(err, inventory.ErrProductNotFound):
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			case errors.Is(err, inventory.ErrInsufficientStock):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, ErrGatewayUnavailable):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "Could not create transaction")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(trx))
	}
}

// GET /api/transactions?from=&to=&status=&method=&limit=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Transaction{}).Preload("Items")

		if fromStr := c.Query("from"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			}
			dbq = dbq.Where("created_at >= ?", from)
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			}
			dbq = dbq.Where("created_at < ?", to.AddDate(0, 0, 1))
		}
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("payment_status = ?", status)
		}
		if method := c.Query("method"); method != "" {
			dbq = dbq.Where("payment_method = ?", method)
		}

		limit := 50
		if l := c.Query("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		var trxs []models.Transaction
		if err := dbq.Order("created_at desc, id desc").Limit(limit).Find(&trxs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list transactions")
		}

		res := make([]TransactionResponse, 0, len(trxs))
		for i := range trxs {
			res = append(res, toResponse(&trxs[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/transactions/:id
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid transaction id")
		}

		var trx models.Transaction
		if err := database.DB.Preload("Items").First(&trx, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Transaction not found")
		}
		return c.JSON(toResponse(&trx))
	}
}

// GET /api/transactions/:id/payment
// Synchronous payment check: for a pending digital payment with a stored
// gateway reference, queries the gateway and reconciles before answering.
func CheckPaymentHandler(gw payment.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid transaction id")
		}

		var trx models.Transaction
		if err := database.DB.Preload("Items").First(&trx, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Transaction not found")
		}

		// Terminal statuses and gateway-less transactions answer from
		// local state; re-checking them is a no-op by design.
		if trx.PaymentStatus != models.PaymentStatusPending ||
			!trx.PaymentMethod.IsDigital() || trx.GatewayPaymentID == "" {
			return c.JSON(fiber.Map{
				"status":      trx.PaymentStatus,
				"transaction": toResponse(&trx),
			})
		}

		ctx, cancel := context.WithTimeout(c.Context(), payment.GatewayTimeout)
		defer cancel()

		inv, err := gw.GetInvoice(ctx, trx.GatewayPaymentID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "Payment gateway unavailable: "+err.Error())
		}

		updated, _, err := payment.Reconcile(database.DB, trx.ID, payment.MapGatewayStatus(inv.Status))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not reconcile payment status")
		}

		return c.JSON(fiber.Map{
			"status":      updated.PaymentStatus,
			"transaction": toResponse(updated),
		})
	}
}
