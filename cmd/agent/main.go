// Command agent is a demo client: it opens presence at a fixed coordinate,
// heartbeats, watches the realtime feed, refreshes nearby on presence
// changes, and answers incoming signals.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"signalapp/internal/client/signalapi"
	"signalapp/internal/models"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "service base url")
	token := flag.String("token", os.Getenv("SIG_TOKEN"), "bearer token")
	lat := flag.Float64("lat", 40.7484, "fixed latitude")
	lng := flag.Float64("lng", -73.9857, "fixed longitude")
	accept := flag.Bool("accept", true, "accept incoming signals (ignore otherwise)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *token == "" {
		logger.Fatal("token required (flag -token or SIG_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := signalapi.NewClient(*baseURL, *token)
	locator := signalapi.NewCachedLocator(signalapi.LocatorFunc(func(context.Context) (*signalapi.Fix, error) {
		return &signalapi.Fix{Lat: *lat, Lng: *lng}, nil
	}))

	watcher := &signalapi.NearbyWatcher{
		Client:  api,
		Locator: locator,
		Logger:  logger,
		OnUpdate: func(items []signalapi.Candidate) {
			for _, item := range items {
				name := "?"
				if item.FirstName != nil {
					name = *item.FirstName
				}
				logger.Info("nearby",
					zap.String("user_id", item.UserID),
					zap.String("first_name", name),
					zap.String("distance_m", strconv.FormatFloat(item.DistanceMeters, 'f', 1, 64)),
				)
			}
		},
	}

	presence := &signalapi.PresenceController{
		Client:  api,
		Locator: locator,
		Logger:  logger,
		OnChange: func(isOpen bool) {
			logger.Info("presence state", zap.Bool("is_open", isOpen))
		},
	}
	if err := presence.SetOpen(ctx, true); err != nil {
		logger.Fatal("open presence failed", zap.Error(err))
	}
	defer presence.Close()
	defer watcher.Stop()

	stream := &signalapi.Stream{
		BaseURL: *baseURL,
		Token:   *token,
		Logger:  logger,
		OnEvent: func(ev signalapi.FeedEvent) {
			switch ev.Table {
			case models.Presence{}.TableName():
				watcher.Request(ctx)
			case models.Signal{}.TableName():
				handleSignalEvent(ctx, api, logger, ev, *accept)
			}
		},
	}
	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("realtime stream stopped", zap.Error(err))
		}
	}()

	watcher.RefreshNow(ctx)
	answerBacklog(ctx, api, logger, *accept)

	<-ctx.Done()
	shutdownCtx := context.Background()
	if err := presence.SetOpen(shutdownCtx, false); err != nil {
		logger.Warn("close presence failed", zap.Error(err))
	}
}

func handleSignalEvent(ctx context.Context, api *signalapi.Client, logger *zap.Logger, ev signalapi.FeedEvent, accept bool) {
	if ev.Type != models.ChangeEventInsert {
		return
	}
	answerBacklog(ctx, api, logger, accept)
}

func answerBacklog(ctx context.Context, api *signalapi.Client, logger *zap.Logger, accept bool) {
	items, err := api.Incoming(ctx)
	if err != nil {
		logger.Warn("incoming fetch failed", zap.Error(err))
		return
	}
	response := models.SignalStatusIgnored
	if accept {
		response = models.SignalStatusAccepted
	}
	for _, item := range items {
		if _, err := api.RespondSignal(ctx, item.ID, response); err != nil {
			logger.Warn("respond failed", zap.String("signal_id", item.ID), zap.Error(err))
			continue
		}
		logger.Info("responded", zap.String("signal_id", item.ID), zap.String("response", response))
	}
}
