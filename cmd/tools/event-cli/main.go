package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/pilotsim/internal/auth"
	"github.com/annel0/pilotsim/internal/config"
	"github.com/annel0/pilotsim/internal/eventbus"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		command    = flag.String("cmd", "tail", "Команда: tail, history, token")
		configPath = flag.String("config", "configs/pilotsim.yml", "Файл конфигурации")
		natsURL    = flag.String("nats", "", "Адрес NATS, по умолчанию из конфигурации")
		eventTypes = flag.String("types", "", "Типы событий через запятую (hook, death, jump)")
		pilotID    = flag.Uint("pilot", 0, "ID пилота для history")
		limit      = flag.Int64("limit", 50, "Максимум событий для history")
		asJSON     = flag.Bool("json", false, "Печатать события целиком в JSON")
		operator   = flag.String("operator", "cli", "Оператор для token")
		admin      = flag.Bool("admin", false, "Выдать токен с правами администратора")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	switch *command {
	case "tail":
		url := *natsURL
		if url == "" {
			url = cfg.EventBus.URL
		}
		if url == "" {
			log.Fatalf("❌ Не задан адрес NATS (-nats или eventbus.url)")
		}
		if err := tail(url, cfg.EventBus, parseStringList(*eventTypes), *asJSON); err != nil {
			log.Fatalf("❌ Tail: %v", err)
		}

	case "history":
		if *pilotID == 0 {
			log.Fatalf("❌ Укажите -pilot")
		}
		if err := history(cfg.Archive, uint32(*pilotID), *limit, *asJSON); err != nil {
			log.Fatalf("❌ History: %v", err)
		}

	case "token":
		if cfg.Auth.JWTSecret == "" {
			log.Fatalf("❌ auth.jwt_secret не задан: токен не примет ни один сервер")
		}
		issuer, err := auth.NewIssuer(cfg.Auth)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		token, err := issuer.Issue(*operator, *admin)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Println(token)

	default:
		fmt.Printf("❌ Неизвестная команда: %s\n", *command)
		fmt.Println("Доступные команды: tail, history, token")
		os.Exit(1)
	}
}

// tail печатает события из JetStream до Ctrl+C
func tail(url string, bc config.EventBusConfig, types []string, asJSON bool) error {
	bus, err := eventbus.NewJetStreamBus(url, bc.Stream, time.Duration(bc.Retention)*time.Hour)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(ctx context.Context, ev *eventbus.Envelope) {
		printEvent(ev, asJSON)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Слушаем %s.* на %s (Ctrl+C для выхода)\n", eventbus.SubjectPrefix, url)
	<-ctx.Done()
	return nil
}

// history печатает последние события пилота из архива MongoDB
func history(ac config.ArchiveConfig, pilot uint32, limit int64, asJSON bool) error {
	archive, err := eventbus.NewArchive(eventbus.ArchiveConfig{
		URI:        ac.MongoURI,
		Database:   ac.Database,
		Collection: ac.Collection,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer archive.Close(ctx)

	events, err := archive.History(ctx, pilot, limit)
	if err != nil {
		return err
	}
	fmt.Printf("📜 Пилот %d: %d событий\n", pilot, len(events))
	for i := range events {
		printEvent(&events[i], asJSON)
	}
	return nil
}

func printEvent(ev *eventbus.Envelope, asJSON bool) {
	if asJSON {
		data, _ := json.Marshal(ev)
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%s %-6s %s\n", ev.Timestamp.Local().Format(timeFormat), ev.EventType, describe(ev))
}

// describe краткое описание полезной нагрузки по типу события
func describe(ev *eventbus.Envelope) string {
	switch ev.EventType {
	case eventbus.TypeHook:
		var p eventbus.HookPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("кадр %d: пилот %d (%s) хук %s", p.Frame, p.Pilot, p.Name, p.Hook)
		}
	case eventbus.TypeDeath:
		var p eventbus.DeathPayload
		if ev.Decode(&p) == nil {
			who := "пилот"
			if p.Player {
				who = "игрок"
			}
			return fmt.Sprintf("кадр %d: %s %d удалён", p.Frame, who, p.Pilot)
		}
	case eventbus.TypeJump:
		var p eventbus.JumpPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("кадр %d: пилот %d %s -> %s", p.Frame, p.Pilot, p.From, p.To)
		}
	}
	return string(ev.Payload)
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
