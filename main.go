package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"stadion-bot/api"
	"stadion-bot/booking"
	"stadion-bot/checker"
	"stadion-bot/config"
	"stadion-bot/handlers"
	"stadion-bot/logger"
	"stadion-bot/metrics"
	"stadion-bot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", false)
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}
	logger.Init(cfg.Log.Level, cfg.IsProduction())
	defer logger.Sync()
	log := logger.L()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Warn("Failed to load timezone, using UTC", zap.String("tz", cfg.TimeZone), zap.Error(err))
		loc = time.UTC
	} else {
		time.Local = loc
		log.Info("Timezone set", zap.String("tz", cfg.TimeZone), zap.Time("now", time.Now()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Fatal("Redis connection failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer store.Close()

	client := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		RPS:     cfg.API.RPS,
		Burst:   cfg.API.Burst,
	}, store, log.Named("api"))

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}
	bot.Debug = cfg.Bot.Debug
	log.Info("Authorized on account", zap.String("username", bot.Self.UserName))

	policy := booking.KeepSplit
	if cfg.Booking.CollapseSplit {
		policy = booking.CollapseSplit
	}

	flows := booking.NewRegistry()
	loader := booking.NewLoader(client, log.Named("availability"))
	handler := handlers.New(bot, store, client, flows, loader, handlers.Options{
		DaysAhead:     cfg.Booking.DaysAhead,
		StadiumsLimit: cfg.Booking.StadiumsLimit,
		Policy:        policy,
		Location:      loc,
		Timeout:       cfg.API.Timeout * 2,
	}, log.Named("handlers"))

	checkerService := checker.New(flows, loader, store, handler, cfg.Poll.DayInterval, cfg.Poll.NightInterval, log.Named("checker"))
	checkerService.Start(ctx)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Info("Metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	log.Info("Bot is running")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update := <-updates:
			if update.Message != nil {
				metrics.RecordUpdate("message")
				handleMessage(handler, update.Message)
			} else if update.CallbackQuery != nil {
				metrics.RecordUpdate("callback")
				handleCallback(handler, update.CallbackQuery)
			}
		}
	}

	log.Info("Shutting down")
	bot.StopReceivingUpdates()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Metrics server shutdown failed", zap.Error(err))
	}
	handler.Wait()
}

func handleMessage(h *handlers.Handler, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if len(msg.Photo) > 0 {
		h.HandlePhoto(msg)
		return
	}
	if !msg.IsCommand() {
		h.HandleText(msg)
		return
	}

	switch msg.Command() {
	case "start", "help":
		h.HandleStart(msg)
	case "stadiums":
		h.HandleStadiums(msg)
	case "bookings":
		h.HandleBookings(msg)
	case "tournaments":
		h.HandleTournaments(msg)
	case "media":
		h.HandleMedia(msg)
	case "profile":
		h.HandleProfile(msg)
	case "login":
		h.HandleLogin(msg)
	case "logout":
		h.HandleLogout(msg)
	case "language":
		h.HandleLanguage(msg)
	default:
		h.HandleUnknown(msg)
	}
}

func handleCallback(h *handlers.Handler, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}

	data := cq.Data

	switch {
	// Catalogue
	case strings.HasPrefix(data, "stadium:"):
		h.HandleStadiumDetail(cq, strings.TrimPrefix(data, "stadium:"))

	case strings.HasPrefix(data, "book:"):
		h.HandleBook(cq, strings.TrimPrefix(data, "book:"))

	// Booking dialog
	case strings.HasPrefix(data, "bk_date:"):
		h.HandleBookingDate(cq, strings.TrimPrefix(data, "bk_date:"))

	case strings.HasPrefix(data, "bk_hour:"):
		h.HandleBookingHour(cq, strings.TrimPrefix(data, "bk_hour:"))

	case data == "bk_na":
		h.HandleBookingUnavailable(cq)

	case data == "bk_next":
		h.HandleBookingNext(cq)

	case data == "bk_back":
		h.HandleBookingBack(cq)

	case data == "bk_confirm":
		h.HandleBookingConfirm(cq)

	case data == "bk_close":
		h.HandleBookingClose(cq)

	// Account
	case strings.HasPrefix(data, "lang:"):
		h.HandleLanguageSet(cq, strings.TrimPrefix(data, "lang:"))

	case data == "profile:edit":
		h.HandleProfileEdit(cq)

	case data == "profile:avatar":
		h.HandleProfileAvatar(cq)

	case data == "profile:delete":
		h.HandleProfileDelete(cq)

	case data == "profile:delete_yes":
		h.HandleProfileDeleteConfirm(cq)

	case data == "logout_yes":
		h.HandleLogoutConfirm(cq)

	case data == "cancel":
		h.HandleCancel(cq)

	default:
		h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))
	}
}
