// Command notifycheck sends test messages through the configured Telegram bot
// and prints per-recipient results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"flowershop/internal/bot"
	"flowershop/internal/config"
	"flowershop/internal/database"
	"flowershop/internal/logging"
	"flowershop/internal/models"
	"flowershop/internal/service"
)

const testMessage = "Тестовое сообщение от цветочного магазина"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config.yaml")
		channel    = flag.Bool("channel", false, "send a test message to the configured channel")
		user       = flag.String("user", "", "send a test message to this Telegram chat id")
		managers   = flag.Bool("managers", false, "send a test message to every manager")
		orderID    = flag.Int64("order", 0, "resend the courier message for this order")
	)
	flag.Parse()

	if !*channel && *user == "" && !*managers && *orderID == 0 {
		flag.Usage()
		return errors.New("nothing to check")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Telegram.Enabled() {
		return errors.New("telegram bot token is not configured")
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	sender, err := bot.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.SendTimeout, cfg.Telegram.Debug)
	if err != nil {
		return err
	}
	fmt.Printf("Bot authorized as @%s\n", sender.GetSelf().UserName)

	notifier := service.NewNotifier(sender, db, db, service.NotifierConfig{
		ChannelID:   cfg.Telegram.ChannelID,
		SendTimeout: cfg.Telegram.SendTimeout,
		FanoutDelay: cfg.Telegram.FanoutDelay,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := false
	report := func(target string, ok bool) {
		status := "OK"
		if !ok {
			status = "FAILED"
			failed = true
		}
		fmt.Printf("%-30s %s\n", target, status)
	}

	if *channel {
		report("channel "+cfg.Telegram.ChannelID, notifier.SendToChannel(ctx, testMessage))
	}
	if *user != "" {
		report("user "+*user, notifier.SendToRecipient(ctx, *user, testMessage))
	}
	if *managers {
		res := notifier.NotifyManagers(ctx, models.NotifyDirect, nil, testMessage)
		if res.Total == 0 {
			fmt.Println("No managers with a Telegram ID")
		}
		for recipient, ok := range res.Results {
			report("manager "+recipient, ok)
		}
	}
	if *orderID != 0 {
		if err := checkOrder(ctx, db, notifier, *orderID, report); err != nil {
			return err
		}
	}

	if failed {
		return errors.New("some messages were not delivered, see the notifications table")
	}
	return nil
}

func checkOrder(ctx context.Context, db *database.DB, notifier *service.Notifier, id int64, report func(string, bool)) error {
	order, err := db.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("load order %d: %w", id, err)
	}
	if order.Courier == nil {
		return fmt.Errorf("order %d has no courier", id)
	}

	target := fmt.Sprintf("courier %s (order #%d)", order.Courier.FullName, id)
	switch notifier.NotifyCourierAssigned(ctx, order, order.Courier) {
	case service.CourierNotified:
		report(target, true)
	case service.CourierNoTelegram:
		fmt.Printf("%-30s NO TELEGRAM ID\n", target)
	default:
		report(target, false)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
