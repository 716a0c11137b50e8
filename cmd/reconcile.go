package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/core/events"
	"github.com/frahmantamala/checkout-payments/internal/payment"
	paymentPostgres "github.com/frahmantamala/checkout-payments/internal/payment/postgres"
	"github.com/frahmantamala/checkout-payments/pkg/logger"
	"github.com/spf13/cobra"
)

// reconcileCmd re-reads a payment from the provider and applies its status,
// the same way a payment.updated notification does.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <transaction-id>",
	Short: "Fetch a payment from the provider and update the stored status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd, args[0])
	},
}

var (
	reconcileAPIURL  string
	reconcileTimeout int
)

func init() {
	reconcileCmd.Flags().StringVar(&reconcileAPIURL, "api-url", "", "override gateway.base_api_url")
	reconcileCmd.Flags().IntVar(&reconcileTimeout, "timeout", 0, "overall timeout in seconds (default 30)")
}

func runReconcile(cmd *cobra.Command, transactionID string) error {
	cfg, err := loadConfigAndLogger((*internal.Config).Validate)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	cfg.Gateway.BaseAPIURL = getStringFlag(reconcileAPIURL, cfg.Gateway.BaseAPIURL)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	gormDB, err := initGorm(db)
	if err != nil {
		return fmt.Errorf("failed to initialize gorm: %w", err)
	}

	gateway, err := newGatewayClient(cfg.Gateway, lg)
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus(lg)
	payment.NewEventHandler(lg).RegisterEventHandlers(eventBus)

	service := payment.NewService(paymentPostgres.NewPaymentRepository(gormDB), gateway, eventBus, lg)

	ctx, cancel := internal.WithTimeout(context.Background(), time.Duration(getIntFlag(reconcileTimeout, 30))*time.Second)
	defer cancel()

	result, err := service.ReconcilePayment(ctx, transactionID)
	if err != nil {
		lg.Error("reconcile failed", "transaction_id", transactionID, "error", err)
		return err
	}

	if err := eventBus.Wait(ctx); err != nil {
		lg.Warn("event handlers did not finish", "error", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to print result: %v\n", err)
	}
	return nil
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}
