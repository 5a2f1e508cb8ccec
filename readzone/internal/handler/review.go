package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zerodice0/readzone/readzone/internal/model"
)

func (h *Handler) Feed(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	page, err := h.feedSvc.Feed(c.Request().Context(), model.FeedRequest{
		Tab:    model.FeedTab(c.QueryParam("tab")),
		Cursor: c.QueryParam("cursor"),
		Limit:  limit,
	}, viewerID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

func (h *Handler) CreateReview(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req model.CreateReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rv, err := h.reviewSvc.CreateReview(c.Request().Context(), uid, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, rv)
}

func (h *Handler) GetReview(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.reviewSvc.GetReview(c.Request().Context(), id, viewerID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, view)
}

func (h *Handler) PublishReview(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rv, err := h.reviewSvc.PublishReview(c.Request().Context(), uid, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, rv)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.reviewSvc.DeleteReview(c.Request().Context(), uid, id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}
