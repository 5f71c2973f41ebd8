// Package httpapi exposes the match coordinator as a JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	"github.com/Jair0305/battleship/internal/msgcat"
	"github.com/Jair0305/battleship/internal/obslog"
	"github.com/Jair0305/battleship/internal/render"
	"github.com/Jair0305/battleship/internal/service/battleship"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

type Server struct {
	svc     *battleship.Service
	msgs    *msgcat.Catalog
	logger  *zap.Logger
	timeout time.Duration
	app     *fiber.App
}

type Option func(*Server)

func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.msgs = c } }

// WithRequestTimeout bounds each coordinator call.
func WithRequestTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

func New(svc *battleship.Service, opts ...Option) *Server {
	s := &Server{svc: svc, logger: obslog.L(), timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if s.msgs == nil {
		s.msgs = msgcat.MustDefault()
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(fiberrecover.New())
	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Get("/rooms", s.listAvailableRooms)
	api.Get("/rooms/all", s.listRooms)
	api.Post("/rooms", s.createRoom)
	api.Post("/rooms/:id/seats/:n", s.assignSeat)
	api.Delete("/rooms/:id/seats/:n", s.releaseSeat)
	api.Post("/rooms/:id/leave", s.leaveRoom)
	api.Post("/rooms/:id/spectators", s.enterSpectator)
	api.Delete("/rooms/:id/spectators", s.leaveSpectator)
	api.Post("/rooms/:id/ready", s.markReady)
	api.Get("/rooms/:id/ready", s.readiness)
	api.Get("/rooms/:id/match", s.activeMatch)
	api.Post("/rooms/:id/chat", s.sendChat)

	api.Post("/players", s.registerPlayer)
	api.Get("/players/:id/stats", s.playerStats)
	api.Post("/players/:id/board", s.prepareBoard)

	api.Post("/matches", s.createMatch)
	api.Post("/matches/room/:roomId", s.createMatchFromRoom)
	api.Get("/matches/:id/state", s.matchState)
	api.Get("/matches/:id/board/:file", s.boardPNG)
	api.Post("/matches/:id/join", s.join)
	api.Post("/matches/:id/board/:player", s.registerBoard)
	api.Post("/matches/:id/shoot", s.shoot)
	api.Post("/matches/:id/undo", s.undo)
	api.Post("/matches/:id/cancel", s.cancel)
	api.Post("/matches/:id/draw", s.draw)
	api.Post("/matches/:id/rematch", s.requestRematch)
	api.Delete("/matches/:id/rematch", s.rejectRematch)

	api.Get("/ranking/match/:matchId/player/:playerId", s.scoreBreakdown)
	api.Get("/ranking/:period", s.leaderboard)
}

func (s *Server) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.timeout)
}

// call runs fn with a bounded context and writes its result as JSON.
func call[T any](s *Server, c *fiber.Ctx, status int, fn func(ctx context.Context) (T, error)) error {
	ctx, cancel := s.ctx(c)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(v)
}

func seatParam(c *fiber.Ctx) (int, error) {
	n, err := strconv.Atoi(c.Params("n"))
	if err != nil {
		return 0, domain.ErrInvalidSeat.Detail("seat %q is not a number", c.Params("n"))
	}
	return n, nil
}

func cellsBody(c *fiber.Ctx) ([]string, error) {
	var cells []string
	if err := json.Unmarshal(c.Body(), &cells); err != nil {
		return nil, domain.ErrInvalidArgs.Detail("body must be a JSON array of cells")
	}
	return cells, nil
}

func (s *Server) listAvailableRooms(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, s.svc.ListAvailableRooms)
}

func (s *Server) listRooms(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, s.svc.ListRooms)
}

func (s *Server) createRoom(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusCreated, func(ctx context.Context) (*dto.Room, error) {
		return s.svc.CreateRoom(ctx, c.Query("name"))
	})
}

func (s *Server) assignSeat(c *fiber.Ctx) error {
	seat, err := seatParam(c)
	if err != nil {
		return err
	}
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Room, error) {
		return s.svc.AssignSeat(ctx, c.Params("id"), c.Query("player"), seat)
	})
}

func (s *Server) releaseSeat(c *fiber.Ctx) error {
	seat, err := seatParam(c)
	if err != nil {
		return err
	}
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Room, error) {
		return s.svc.ReleaseSeat(ctx, c.Params("id"), seat)
	})
}

func (s *Server) leaveRoom(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Room, error) {
		return s.svc.LeaveRoom(ctx, c.Params("id"), c.Query("player"))
	})
}

func (s *Server) enterSpectator(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Room, error) {
		return s.svc.EnterSpectator(ctx, c.Params("id"))
	})
}

func (s *Server) leaveSpectator(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Room, error) {
		return s.svc.LeaveSpectator(ctx, c.Params("id"))
	})
}

func (s *Server) markReady(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Readiness, error) {
		return s.svc.MarkReady(ctx, c.Params("id"), c.Query("player"))
	})
}

func (s *Server) readiness(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Readiness, error) {
		return s.svc.ReadinessState(ctx, c.Params("id"))
	})
}

func (s *Server) activeMatch(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.ActiveMatchForRoom(ctx, c.Params("id"))
	})
}

type chatRequest struct {
	Content string `json:"content"`
}

func (s *Server) sendChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return domain.ErrInvalidArgs.Detail("body must be a JSON object with content")
	}
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.ChatMessage, error) {
		return s.svc.SendChat(ctx, c.Params("id"), c.Query("player"), req.Content)
	})
}

func (s *Server) registerPlayer(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*domain.Player, error) {
		return s.svc.RegisterPlayer(ctx, c.Query("id"), c.Query("name"))
	})
}

func (s *Server) playerStats(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.PlayerStats, error) {
		return s.svc.PlayerStats(ctx, c.Params("id"))
	})
}

func (s *Server) prepareBoard(c *fiber.Ctx) error {
	cells, err := cellsBody(c)
	if err != nil {
		return err
	}
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Board, error) {
		return s.svc.PrepareBoard(ctx, c.Params("id"), cells)
	})
}

func (s *Server) createMatch(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusCreated, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.CreateMatch(ctx, c.Query("room"), c.Query("host"))
	})
}

func (s *Server) createMatchFromRoom(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusCreated, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.CreateMatchFromRoom(ctx, c.Params("roomId"))
	})
}

func (s *Server) matchState(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.MatchState(ctx, c.Params("id"), c.Query("player"))
	})
}

// boardPNG serves /board/{player}.png as seen by ?viewer=.
func (s *Server) boardPNG(c *fiber.Ctx) error {
	owner, ok := strings.CutSuffix(c.Params("file"), ".png")
	if !ok || owner == "" {
		return fiber.ErrNotFound
	}
	ctx, cancel := s.ctx(c)
	defer cancel()
	v, err := s.svc.MatchState(ctx, c.Params("id"), c.Query("viewer"))
	if err != nil {
		return err
	}
	for _, b := range v.Boards {
		if b.OwnerID != owner {
			continue
		}
		img, err := render.PNG(ctx, b, render.Options{Title: boardTitle(v, owner)})
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(img)
	}
	return domain.ErrNotParticipant.Detail("player %q is not part of match %q", owner, v.ID)
}

func boardTitle(v *dto.Match, owner string) string {
	for _, p := range v.Participants {
		if p.PlayerID == owner && p.Name != "" {
			return p.Name
		}
	}
	return owner
}

func (s *Server) join(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.Join(ctx, c.Params("id"), c.Query("player"))
	})
}

func (s *Server) registerBoard(c *fiber.Ctx) error {
	cells, err := cellsBody(c)
	if err != nil {
		return err
	}
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.RegisterBoard(ctx, c.Params("id"), c.Params("player"), cells)
	})
}

type shotResponse struct {
	*dto.ShotResult
	Message string `json:"message,omitempty"`
}

func (s *Server) shoot(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (shotResponse, error) {
		res, err := s.svc.Shoot(ctx, c.Params("id"), c.Query("player"), c.Query("cell"))
		if err != nil {
			return shotResponse{}, err
		}
		out := shotResponse{ShotResult: res}
		if res.Finished {
			out.Message = s.msgs.Text("events.match_finished", map[string]any{
				"Winner": boardTitle(res.Match, res.Match.WinnerID),
				"Shots":  res.Match.ShotCount,
			}, "")
		}
		return out, nil
	})
}

func (s *Server) undo(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.UndoLastShot(ctx, c.Params("id"))
	})
}

func (s *Server) cancel(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.Cancel(ctx, c.Params("id"))
	})
}

type drawResponse struct {
	*dto.Match
	Message string `json:"message,omitempty"`
}

func (s *Server) draw(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (drawResponse, error) {
		m, err := s.svc.DeclareDraw(ctx, c.Params("id"))
		if err != nil {
			return drawResponse{}, err
		}
		return drawResponse{Match: m, Message: s.msgs.Text("events.match_draw", nil, "")}, nil
	})
}

func (s *Server) requestRematch(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.RequestRematch(ctx, c.Params("id"), c.Query("player"))
	})
}

func (s *Server) rejectRematch(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Match, error) {
		return s.svc.RejectRematch(ctx, c.Params("id"), c.Query("player"))
	})
}

func (s *Server) leaderboard(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.Leaderboard, error) {
		return s.svc.Leaderboard(ctx, c.Params("period"))
	})
}

func (s *Server) scoreBreakdown(c *fiber.Ctx) error {
	return call(s, c, fiber.StatusOK, func(ctx context.Context) (*dto.ScoreBreakdown, error) {
		return s.svc.ScoreBreakdown(ctx, c.Params("matchId"), c.Params("playerId"))
	})
}
