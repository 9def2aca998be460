package controller

import (
	"context"
	"os"

	"crag-notes-be/internal/dto"
	"crag-notes-be/internal/pkg/logger"
	"crag-notes-be/internal/pkg/serverutils"
	"crag-notes-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type IAskController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	AskStream(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	DeleteThread(ctx *fiber.Ctx) error
}

type askController struct {
	service service.IAskService
	logger  logger.ILogger
}

func NewAskController(service service.IAskService, log logger.ILogger) IAskController {
	return &askController{service: service, logger: log}
}

func (c *askController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ask/v1")
	// The websocket handshake cannot send an Authorization header from
	// browsers, so the stream route does its own token check.
	h.Get("/stream", c.AskStream)

	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Ask)
	h.Get("history/:threadId", c.GetHistory)
	h.Delete("history/:threadId", c.DeleteThread)
}

func (c *askController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

// AskStream upgrades to a websocket, reads one question frame, and pushes
// chunk frames followed by exactly one final frame. Pipeline failures
// after chunks have been sent surface as an error frame, never a final.
func (c *askController) AskStream(ctx *fiber.Ctx) error {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		c.logger.Warn("AskController", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		// The fiber context is gone after the hijack; the stream gets its
		// own lifetime, cancelled when this handler returns.
		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var req dto.AskRequest
		if err := conn.ReadJSON(&req); err != nil {
			_ = conn.WriteJSON(dto.AskStreamFrame{Type: "error", Error: "Invalid request frame"})
			return
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			_ = conn.WriteJSON(dto.AskStreamFrame{Type: "error", Error: err.Error()})
			return
		}

		err := c.service.AskStream(streamCtx, &req, func(frame dto.AskStreamFrame) error {
			return conn.WriteJSON(frame)
		})
		if err != nil {
			c.logger.Error("AskController", "Stream failed", map[string]interface{}{
				"thread_id": req.ThreadId,
				"error":     err.Error(),
			})
			_ = conn.WriteJSON(dto.AskStreamFrame{Type: "error", Error: err.Error()})
		}
	})(ctx)
}

func (c *askController) GetHistory(ctx *fiber.Ctx) error {
	threadId, err := uuid.Parse(ctx.Params("threadId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid thread ID")
	}

	res, err := c.service.GetHistory(ctx.Context(), threadId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list thread history", res))
}

func (c *askController) DeleteThread(ctx *fiber.Ctx) error {
	threadId, err := uuid.Parse(ctx.Params("threadId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid thread ID")
	}

	if err := c.service.DeleteThread(ctx.Context(), threadId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete thread history", nil))
}
