package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/service/concierge"
	"github.com/pocketkart/pocketbot/pkg/conv"
)

// chatReply wraps the concierge response with an HTML rendering of the reply
// so the web widget does not need a markdown renderer of its own.
type chatReply struct {
	*concierge.ChatResponse
	ReplyHTML string `json:"replyHtml"`
}

func (s *Server) chatMessage(c echo.Context) error {
	var req concierge.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	// A first-contact widget has no session yet; mint one for it.
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := s.concierge.HandleChat(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, chatReply{
		ChatResponse: resp,
		ReplyHTML:    conv.MarkdownToSafeHTML([]byte(resp.Reply)),
	})
}

func (s *Server) chatMessageStream(c echo.Context) error {
	var req concierge.StreamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "clientId is required")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := s.concierge.HandleChatStream(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrClientNotRegistered) {
			return echo.NewHTTPError(http.StatusConflict, "client is not connected; open the websocket first")
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusAccepted, resp)
}

type escalateRequest struct {
	SessionID string        `json:"sessionId"`
	Reason    string        `json:"reason"`
	Metadata  core.Metadata `json:"metadata,omitempty"`
}

func (s *Server) escalate(c echo.Context) error {
	var req escalateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId is required")
	}

	esc, err := s.concierge.Escalate(c.Request().Context(), req.SessionID, req.Reason, req.Metadata)
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, esc)
}

func (s *Server) getSession(c echo.Context) error {
	conv, err := s.concierge.GetConversation(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, conv)
}

func (s *Server) deleteMemory(c echo.Context) error {
	if err := s.concierge.DeleteUserMemory(c.Request().Context(), c.Param("userId")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
