// Command simulator connects several scripted chat users to a hub so the
// client has live rooms to sync against. With -embed it runs its own hub.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/aeolun/roomsync/pkg/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Persona defines a simulated user's personality
type Persona struct {
	Name       string
	Lines      []string // things they say
	Rooms      []string // rooms they wander between
	TalkChance float64  // probability of saying something per tick (0.0-1.0)
	MoveChance float64  // probability of changing rooms per tick
}

var defaultPersonas = []Persona{
	{
		Name:       "TechEnthusiast",
		Lines:      []string{"just tried the new release, it's fast", "anyone using websockets for this?", "open source wins again"},
		Rooms:      []string{"main", "random"},
		TalkChance: 0.3,
		MoveChance: 0.05,
	},
	{
		Name:       "CuriousNewbie",
		Lines:      []string{"how do rooms work here?", "what does /join do?", "is anyone around?"},
		Rooms:      []string{"main"},
		TalkChance: 0.4,
		MoveChance: 0.1,
	},
	{
		Name:       "HelpfulExpert",
		Lines:      []string{"type /join <room> to switch rooms", "/name changes how others see you", "press ? in the client for help"},
		Rooms:      []string{"main", "help"},
		TalkChance: 0.25,
		MoveChance: 0.05,
	},
	{
		Name:       "CasualChatter",
		Lines:      []string{"coffee time", "that's hilarious", "brb"},
		Rooms:      []string{"random", "main"},
		TalkChance: 0.35,
		MoveChance: 0.15,
	},
}

// SimulatedUser is a headless client driving one persona
type SimulatedUser struct {
	persona Persona
	session *client.Session
	ctrl    *client.Controller
	logger  *zap.Logger
	rng     *rand.Rand
	room    string
}

func NewSimulatedUser(baseURL string, persona Persona, logger *zap.Logger, seed int64) *SimulatedUser {
	logger = logger.With(zap.String("user", persona.Name))
	session := client.NewSession(client.SocketURL(baseURL, persona.Name), client.WithSessionLogger(logger))
	users := client.UserLookupFunc(func() (client.CurrentUser, error) {
		return client.CurrentUser{DisplayName: persona.Name}, nil
	})

	return &SimulatedUser{
		persona: persona,
		session: session,
		ctrl:    client.NewController(session, users, client.WithLogger(logger)),
		logger:  logger,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Run connects and talks on every tick until ctx is done or the socket drops
func (u *SimulatedUser) Run(ctx context.Context, tick time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- u.session.Run(ctx, u.ctrl)
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.session.Close()
			<-sessionDone
			return nil
		case err := <-sessionDone:
			if err != nil {
				u.logger.Warn("Session ended", zap.Error(err))
			}
			return err
		case <-ticker.C:
			u.act(ctx)
		}
	}
}

func (u *SimulatedUser) act(ctx context.Context) {
	if u.session.State() != client.StateOpen {
		return
	}

	if len(u.persona.Rooms) > 0 && u.rng.Float64() < u.persona.MoveChance {
		room := u.persona.Rooms[u.rng.Intn(len(u.persona.Rooms))]
		if room != u.room {
			u.say(ctx, "/join "+room)
			u.room = room
			return
		}
	}

	if len(u.persona.Lines) > 0 && u.rng.Float64() < u.persona.TalkChance {
		u.say(ctx, u.persona.Lines[u.rng.Intn(len(u.persona.Lines))])
	}
}

func (u *SimulatedUser) say(ctx context.Context, text string) {
	if err := u.session.Send(ctx, text); err != nil {
		u.logger.Warn("Send failed", zap.Error(err))
		return
	}
	u.logger.Debug("Said", zap.String("text", truncate(text, 50)))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func main() {
	// Flags take precedence over env vars
	serverURL := flag.String("server", getEnvOrDefault("SIMULATOR_SERVER", "http://localhost:8080"), "Hub base URL (env: SIMULATOR_SERVER)")
	numUsers := flag.Int("users", getEnvIntOrDefault("SIMULATOR_USERS", 3), "Number of simulated users, max 4 (env: SIMULATOR_USERS)")
	tickSeconds := flag.Int("tick", getEnvIntOrDefault("SIMULATOR_TICK_SECONDS", 5), "Seconds between actions (env: SIMULATOR_TICK_SECONDS)")
	embed := flag.Bool("embed", false, "Run an in-process hub on -addr and connect to it")
	addr := flag.String("addr", "127.0.0.1:8080", "Listen address for the embedded hub")
	flag.Parse()

	if *numUsers > len(defaultPersonas) {
		*numUsers = len(defaultPersonas)
	}
	if *numUsers < 1 {
		*numUsers = 1
	}
	if *tickSeconds < 1 {
		*tickSeconds = 1
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *embed {
		config := server.DefaultConfig()
		config.HTTPAddr = *addr
		config.SeedRooms = append(config.SeedRooms, "help")
		hub := server.NewServer(config, logger)
		if err := hub.Start(); err != nil {
			logger.Fatal("Failed to start hub", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hub.Stop(shutdownCtx)
		}()
		*serverURL = "http://" + hub.Addr().String()
	}

	logger.Info("Starting chat simulator",
		zap.String("server", *serverURL),
		zap.Int("users", *numUsers),
		zap.Int("tick_seconds", *tickSeconds),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *numUsers; i++ {
		user := NewSimulatedUser(*serverURL, defaultPersonas[i], logger, time.Now().UnixNano()+int64(i))
		g.Go(func() error {
			return user.Run(gctx, time.Duration(*tickSeconds)*time.Second)
		})
		// Stagger starts to avoid connection storm
		time.Sleep(500 * time.Millisecond)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Simulator stopped", zap.Error(err))
	}
	logger.Info("Done")
}
