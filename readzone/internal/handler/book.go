package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zerodice0/readzone/readzone/internal/model"
)

func (h *Handler) SearchBooks(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	res, err := h.bookSvc.Search(c.Request().Context(), model.SearchQuery{
		Query: c.QueryParam("query"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}

func (h *Handler) SearchByISBN(c echo.Context) error {
	res, err := h.bookSvc.SearchByISBN(c.Request().Context(), c.Param("isbn"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}

func (h *Handler) BatchSearch(c echo.Context) error {
	var req model.BatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.bookSvc.BatchSearch(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book, created, err := h.bookSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ok(c, code, book)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	book, err := h.bookSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, book)
}

func (h *Handler) Usage(c echo.Context) error {
	usage, err := h.bookSvc.Usage(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, usage)
}

func (h *Handler) CacheStats(c echo.Context) error {
	stats, err := h.bookSvc.CacheStats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, stats)
}

func (h *Handler) ClearCache(c echo.Context) error {
	res, err := h.bookSvc.ClearCache(c.Request().Context(), c.QueryParam("pattern"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}
