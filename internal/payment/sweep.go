package payment

import (
	"context"
	"time"

	"tokopos-backend/internal/config"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepBatchSize = 50

// SweepPending re-queries the gateway for PENDING digital transactions older
// than the given age and reconciles each one. Reconcile's conditional update
// makes it safe to run concurrently with webhooks and status polls. Returns
// how many transactions were checked and how many changed status.
func SweepPending(db *gorm.DB, gw Gateway, olderThan time.Duration) (checked, updated int, err error) {
	var trxs []models.Transaction
	err = db.
		Where("payment_status = ? AND gateway_payment_id <> '' AND created_at < ?",
			models.PaymentStatusPending, time.Now().Add(-olderThan)).
		Order("created_at asc").
		Limit(sweepBatchSize).
		Find(&trxs).Error
	if err != nil {
		return 0, 0, err
	}

	for _, trx := range trxs {
		checked++

		ctx, cancel := context.WithTimeout(context.Background(), GatewayTimeout)
		inv, err := gw.GetInvoice(ctx, trx.GatewayPaymentID)
		cancel()
		if err != nil {
			zap.L().Warn("sweep: gateway query failed",
				zap.Uint("transaction_id", trx.ID),
				zap.Error(err))
			continue
		}

		incoming := MapGatewayStatus(inv.Status)
		if incoming == models.PaymentStatusPending {
			continue
		}

		if _, changed, err := Reconcile(db, trx.ID, incoming); err != nil {
			zap.L().Error("sweep: reconciliation failed",
				zap.Uint("transaction_id", trx.ID),
				zap.Error(err))
		} else if changed {
			updated++
			zap.L().Info("sweep: payment status updated",
				zap.Uint("transaction_id", trx.ID),
				zap.String("number", trx.Number),
				zap.String("status", string(incoming)))
		}
	}
	return checked, updated, nil
}

// StartSweep schedules the periodic pending-payment sweep.
func StartSweep(cfg *config.Config, gw Gateway) *cron.Cron {
	sched := cron.New()
	_, err := sched.AddFunc("@every "+cfg.PaymentSweepInterval.String(), func() {
		checked, updated, err := SweepPending(database.DB, gw, cfg.PaymentSweepInterval)
		if err != nil {
			zap.L().Error("pending payment sweep failed", zap.Error(err))
			return
		}
		if checked > 0 {
			zap.L().Info("pending payment sweep done",
				zap.Int("checked", checked),
				zap.Int("updated", updated))
		}
	})
	if err != nil {
		zap.S().Fatalf("could not schedule payment sweep: %v", err)
	}
	sched.Start()
	return sched
}

// POST /api/admin/payments/sync (admin only) — run a sweep on demand over all
// currently pending digital transactions.
func SyncHandler(gw Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checked, updated, err := SweepPending(database.DB, gw, 0)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not sync pending payments")
		}
		return c.JSON(fiber.Map{"checked": checked, "updated": updated})
	}
}
