package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pocketkart/pocketbot/internal/core"
)

func (s *Server) listConversations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	convs, err := s.concierge.ListConversations(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) listEscalations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	escs, err := s.concierge.ListEscalations(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"escalations": escs})
}

func (s *Server) getFlags(c echo.Context) error {
	return c.JSON(http.StatusOK, s.switchboard.Flags())
}

func (s *Server) patchFlags(c echo.Context) error {
	var patch core.FlagPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, s.switchboard.Update(patch))
}
