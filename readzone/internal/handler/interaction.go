package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zerodice0/readzone/readzone/internal/model"
)

// actionTarget resolves the caller, the :id path target and the action body.
func actionTarget(c echo.Context) (int64, int64, string, error) {
	uid, err := userID(c)
	if err != nil {
		return 0, 0, "", err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return 0, 0, "", err
	}
	var req actionRequest
	if err := bind(c, &req); err != nil {
		return 0, 0, "", err
	}
	return uid, id, req.Action, nil
}

func (h *Handler) Like(c echo.Context) error {
	uid, reviewID, action, err := actionTarget(c)
	if err != nil {
		return err
	}
	res, err := h.interactionSvc.Like(c.Request().Context(), uid, reviewID, model.LikeAction(action))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}

func (h *Handler) Bookmark(c echo.Context) error {
	uid, reviewID, action, err := actionTarget(c)
	if err != nil {
		return err
	}
	res, err := h.interactionSvc.Bookmark(c.Request().Context(), uid, reviewID, model.BookmarkAction(action))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}

func (h *Handler) Follow(c echo.Context) error {
	uid, followee, action, err := actionTarget(c)
	if err != nil {
		return err
	}
	res, err := h.interactionSvc.Follow(c.Request().Context(), uid, followee, model.FollowAction(action))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}
