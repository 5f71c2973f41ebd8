// Command relaycheck verifies that the configured event relays accept
// traffic: it posts one probe event to the webhook and, when a WebSocket
// relay is configured, connects, writes the probe and prints inbound frames
// for a short window.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	appcfg "github.com/Jair0305/battleship/internal/config"
	"github.com/Jair0305/battleship/internal/events"
	"github.com/Jair0305/battleship/internal/relay"
)

func main() {
	_ = godotenv.Load()
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.EventsWebhookURL == "" && cfg.EventsWSURL == "" {
		log.Fatal("EVENTS_WEBHOOK_URL or EVENTS_WS_URL is required")
	}

	probe := events.Event{
		Type:    "relay.probe",
		Channel: events.ChannelRooms,
		Subject: "relaycheck",
		At:      time.Now().UTC(),
	}

	if cfg.EventsWebhookURL != "" {
		hook := relay.NewWebhook(cfg.EventsWebhookURL, relay.WithTimeout(8*time.Second), relay.WithRetry(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := hook.Publish(ctx, probe); err != nil {
			log.Printf("webhook error: %v", err)
		} else {
			log.Printf("webhook ok: %s", cfg.EventsWebhookURL)
		}
		cancel()
	}

	if cfg.EventsWSURL == "" {
		log.Println("EVENTS_WS_URL not set; skipping WS check")
		return
	}

	ws := relay.NewWebSocket(cfg.EventsWSURL, 0)
	ws.OnStateChange(func(state relay.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *relay.Inbound) {
		fmt.Printf("WS msg type=%s channel=%s data=%s\n", msg.Type, msg.Channel, string(msg.Data))
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	if err := ws.WriteJSON(cctx, probe); err != nil {
		log.Printf("WS write error: %v", err)
	}

	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
