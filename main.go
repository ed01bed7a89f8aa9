package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/api"
	"github.com/dest92/agora-backend/boards"
	"github.com/dest92/agora-backend/events"
	"github.com/dest92/agora-backend/health"
	"github.com/dest92/agora-backend/notifications"
	"github.com/dest92/agora-backend/realtime"
	"github.com/dest92/agora-backend/sessions"
	"github.com/dest92/agora-backend/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "agora.db"
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)
	bus := events.NewRedisBus(rc, logger)

	// A silently disabled bus would strand every connected client; refuse
	// to start without the transport.
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if !bus.Ping(pingCtx) {
		log.Fatal("event bus transport unreachable")
	}
	cancel()

	var auth *api.Auth
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		auth = api.NewAuth(nil, "", "")
	} else {
		audience := os.Getenv("AUTH_AUDIENCE")
		domain := os.Getenv("AUTH_DOMAIN")
		if audience == "" || domain == "" {
			log.Fatal("missing auth config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, audience, "https://"+domain+"/")
	}

	hub := realtime.NewHub(logger)
	hub.Register(bus)
	notifs := notifications.New(store, bus, logger)
	notifs.Register(bus)
	go bus.Run(context.Background())

	agg := health.NewAggregator(health.DefaultTimeout)
	agg.Add("redis", health.PingCheck(bus))
	agg.Add("db", health.ErrCheck(store.Ping))
	probeClient := &http.Client{}
	for _, target := range strings.Split(os.Getenv("SERVICE_HEALTH_TARGETS"), ",") {
		kv := strings.SplitN(strings.TrimSpace(target), "=", 2)
		if len(kv) != 2 {
			continue
		}
		agg.Add(kv[0], health.HTTPCheck(probeClient, kv[1]))
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, api.Deps{
		Auth:          auth,
		Hub:           hub,
		Boards:        boards.NewManagement(store, bus, logger),
		Cards:         boards.NewCards(store, bus, logger),
		Comments:      boards.NewComments(store, bus, logger),
		Assignees:     boards.NewAssignees(store, bus, logger),
		Votes:         boards.NewVotes(store, bus, logger),
		Tags:          boards.NewTags(store, bus, logger),
		Chat:          boards.NewChat(store, bus, logger),
		Sessions:      sessions.New(store, bus, logger),
		Notifications: notifs,
		Health:        agg,
	})

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
