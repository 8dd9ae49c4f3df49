// Command checkout drives one purchase through the payment flow against a
// running gateway and reports the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cinewave/momoflow/internal/flow"
	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/momo"
	"github.com/google/uuid"
)

func main() {
	gatewayURL := flag.String("gateway", "http://localhost:8080", "gateway base URL")
	token := flag.String("token", "", "bearer token for the gateway")
	device := flag.String("device", "", "device identifier reused across calls (generated if empty)")
	item := flag.String("item", "", "item reference to purchase")
	kind := flag.String("kind", "WATCH", "purchase kind: WATCH or DOWNLOAD")
	amount := flag.Int64("amount", 0, "amount in minor units")
	currency := flag.String("currency", "RWF", "currency code")
	phone := flag.String("phone", "", "payer phone number")
	payer := flag.String("payer", "", "payer identifier")
	interval := flag.Duration("poll-interval", flow.DefaultPollInterval, "status poll interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	deviceID := *device
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	client := momo.NewClient(*gatewayURL, deviceID, momo.WithToken(*token))
	board := flow.NewStatusBoard()

	done := make(chan models.Transaction, 1)
	machine := flow.NewMachine(client, board, flow.Options{
		Logger:       logger,
		PollInterval: *interval,
		OnSuccess: func(tx models.Transaction) {
			done <- tx
		},
	})

	err := machine.Submit(context.Background(), momo.InitiateInput{
		ItemRef:    *item,
		Kind:       models.PurchaseKind(*kind),
		Amount:     *amount,
		Currency:   *currency,
		PayerPhone: *phone,
		PayerID:    *payer,
	})
	if err != nil {
		logger.Error("payment not started", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastStep := flow.Step("")
	for {
		select {
		case tx := <-done:
			fmt.Printf("payment successful: transaction %s\n", tx.ID)
			return
		case <-ticker.C:
			v := machine.View()
			if v.Step != lastStep {
				lastStep = v.Step
				logger.Info("flow step changed", "step", v.Step, "message", v.LastMessage)
			}
			if v.Step == flow.StepVerifying {
				logger.Debug("waiting for confirmation",
					"attempt", v.PollAttempt,
					"max_attempts", v.MaxPollAttempts,
				)
			}
			if v.Step == flow.StepFailed || v.Step == flow.StepTimeout {
				logger.Error("payment did not complete", "step", v.Step, "error", v.LastError)
				os.Exit(1)
			}
		}
	}
}
