package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"skillsocket/internal/adapter/gateway"
	"skillsocket/internal/adapter/llm"
	"skillsocket/internal/adapter/matcher"
	"skillsocket/internal/adapter/push"
	"skillsocket/internal/adapter/store/sqlite"
	"skillsocket/internal/adapter/tool"
	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
	"skillsocket/internal/infra/logger"
	"skillsocket/internal/infra/middleware"
	"skillsocket/internal/infra/tracer"
	"skillsocket/internal/usecase/agents"
	"skillsocket/internal/usecase/chat"
	"skillsocket/internal/usecase/eventbus"
	"skillsocket/internal/usecase/maintenance"
	"skillsocket/internal/usecase/notify"
	"skillsocket/internal/usecase/presence"
	"skillsocket/internal/usecase/routing"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "encrypt":
			if err := runEncrypt(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Print(`skillsocket - skill exchange platform backend

Usage:
  skillsocket [--config path]   Start the server (default: ./config.yaml)
  skillsocket encrypt <value>   Encrypt a secret for use in config.yaml
                                (requires SKILLSOCKET_CONFIG_KEY)
  skillsocket --help            Show this help

Environment:
  SKILLSOCKET_ADDR          Override server listen address
  SKILLSOCKET_CONFIG_KEY    Passphrase for enc: secrets in config.yaml
  CEREBRAS_API_KEY          LLM provider API key
  TAVILY_API_KEY            Web search API key
`)
}

// runEncrypt prints the enc: form of a secret so it can be pasted into
// config.yaml.
func runEncrypt(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("usage: skillsocket encrypt <value>")
	}
	passphrase := os.Getenv("SKILLSOCKET_CONFIG_KEY")
	if passphrase == "" {
		return fmt.Errorf("SKILLSOCKET_CONFIG_KEY must be set")
	}
	encrypted, err := config.EncryptValue(args[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Println(encrypted)
	return nil
}

func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
	}
	return "config.yaml"
}

func run(args []string) error {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	bus := eventbus.New(log)
	defer bus.Close()

	// Every bus event gets a debug log line; the REST metrics counters
	// subscribe separately in RegisterRESTHandlers.
	bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		log.Debug("event", "type", event.Type, "user", event.UserID)
	})

	pres := presence.NewRegistry()

	generator, err := buildLLM(cfg.LLM, log)
	if err != nil {
		return err
	}

	tools, err := buildTools(cfg.Search, log)
	if err != nil {
		return err
	}

	matchClient := matcher.NewClient(cfg.Matcher, log)

	var sender push.Sender = push.NoopSender{}
	if cfg.Push.Enabled {
		sender = push.NewHTTPSender(cfg.Push, log)
	}
	dispatcher := notify.NewDispatcher(store, sender, bus, log)

	tokens := make([]gateway.TokenEntry, 0, len(cfg.Auth.Tokens))
	for _, t := range cfg.Auth.Tokens {
		tokens = append(tokens, gateway.TokenEntry{Token: t.Token, Name: t.Name, Roles: t.Roles})
	}
	srv := gateway.NewServer(
		gateway.NewStaticTokenAuth(tokens),
		pres, bus,
		cfg.Server.Addr, cfg.Chat.SendQueueSize,
		log,
	)

	receipts := chat.NewReceiptScheduler(cfg.Chat.ReadReceiptDelay)
	chatSvc := chat.NewService(store, store, pres, srv, dispatcher, receipts, bus, log)
	gateway.RegisterChatHandlers(srv, chatSvc)

	router := routing.NewRouter(generator, bus, log)
	for _, agent := range []domain.Agent{
		agents.NewAnswerAgent(generator, tools, log),
		agents.NewRoadmapAgent(generator, tools, log),
		agents.NewSkillMatchAgent(generator, matchClient, log),
	} {
		if err := router.Register(agent); err != nil {
			return fmt.Errorf("register agent: %w", err)
		}
	}

	gateway.RegisterRESTHandlers(srv, gateway.HandlerDeps{
		Chat:        chatSvc,
		Users:       store,
		Connections: store,
		Notifier:    dispatcher,
		Presence:    pres,
		Router:      router,
		Health:      store.Ping,
		Bus:         bus,
		Logger:      log,
	})

	srv.Use(middleware.SecurityHeaders, middleware.AccessLog(log))
	if cfg.Server.RateLimit.Enabled {
		srv.Use(middleware.RateLimit(ctx, cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst))
	}

	sched := maintenance.NewScheduler(log)
	if err := maintenance.RegisterDefaultTasks(sched, store, pres, cfg.Notifications, log); err != nil {
		return fmt.Errorf("register maintenance tasks: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	log.Info("skillsocket starting",
		"addr", cfg.Server.Addr,
		"llm", generator.Name(),
		"push", sender.Name(),
		"store", cfg.Store.Path)

	return srv.Start(ctx)
}

// buildLLM constructs the default text generator from the provider list,
// wrapped with a circuit breaker when enabled.
func buildLLM(cfg config.LLMConfig, log *slog.Logger) (domain.TextGenerator, error) {
	registry := llm.NewRegistry()
	for _, pc := range cfg.Providers {
		var provider domain.TextGenerator
		switch pc.Type {
		case "cerebras", "":
			provider = llm.NewCerebrasProvider(pc, log)
		default:
			return nil, fmt.Errorf("unknown llm provider type %q", pc.Type)
		}
		if cfg.CircuitBreaker.Enabled {
			provider = llm.NewCircuitBreakerProvider(provider, cfg.CircuitBreaker, log)
		}
		if err := registry.Register(provider); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}
	generator, err := registry.Get(cfg.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("default llm provider: %w", err)
	}
	return generator, nil
}

// buildTools wires the web search tool behind the configured backend.
func buildTools(cfg config.SearchConfig, log *slog.Logger) (domain.ToolExecutor, error) {
	var backend tool.SearchBackend
	switch cfg.Backend {
	case "tavily", "":
		backend = tool.NewTavilyBackend(cfg.BaseURL, cfg.APIKey, log)
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}

	registry := tool.NewRegistry(log)
	if err := registry.Register(tool.NewWebSearchTool(backend, cfg.CacheTTL, log)); err != nil {
		return nil, fmt.Errorf("register tool: %w", err)
	}
	return registry, nil
}
