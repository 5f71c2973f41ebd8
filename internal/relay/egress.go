package relay

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/events"
)

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

// NewEgress returns a publisher for mode. In auto mode the WebSocket is
// preferred while connected and a failed write falls back to the webhook
// once. dryrun logs frames instead of writing them to the socket.
func NewEgress(mode string, dryrun bool, hook *Webhook, ws *WebSocket, logger *zap.Logger) events.Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeWS:
		return &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
	case ModeAuto:
		return &autoEgress{ws: &wsEgress{ws: ws, dryrun: dryrun, logger: logger}, http: &httpEgress{hook: hook}, logger: logger}
	default:
		return &httpEgress{hook: hook}
	}
}

type httpEgress struct{ hook *Webhook }

func (h *httpEgress) Publish(ctx context.Context, ev events.Event) error {
	if h == nil || h.hook == nil {
		return errors.New("http egress not available")
	}
	return h.hook.Publish(ctx, ev)
}

type wsEgress struct {
	ws     *WebSocket
	dryrun bool
	logger *zap.Logger
}

func (w *wsEgress) Publish(ctx context.Context, ev events.Event) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", ev.Type), zap.String("channel", ev.Channel))
		return nil
	}
	return w.ws.WriteJSON(ctx, ev)
}

func (w *wsEgress) available() bool {
	return w != nil && w.ws != nil && (w.dryrun || w.ws.Connected())
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Publish(ctx context.Context, ev events.Event) error {
	if a.ws.available() {
		err := a.ws.Publish(ctx, ev)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", ev.Type), zap.String("channel", ev.Channel), zap.Error(err))
	}
	return a.http.Publish(ctx, ev)
}
