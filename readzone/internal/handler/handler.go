package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zerodice0/readzone/pkg/auth"
	md "github.com/zerodice0/readzone/pkg/middleware"
	"github.com/zerodice0/readzone/pkg/validate"
	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

type Handler struct {
	bookSvc        BookService
	feedSvc        FeedService
	reviewSvc      ReviewService
	interactionSvc InteractionService
	log            *zap.Logger
}

func New(books BookService, feed FeedService, reviews ReviewService, interactions InteractionService, log *zap.Logger) *Handler {
	return &Handler{
		bookSvc:        books,
		feedSvc:        feed,
		reviewSvc:      reviews,
		interactionSvc: interactions,
		log:            log.Named("handler"),
	}
}

type RouterConfig struct {
	JWTSecret []byte
	BaseRPS   float64
	APIRPS    float64
}

func (h *Handler) NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = h.HTTPErrorHandler
	e.Validator = validate.NewCustomValidator()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(rate.Limit(cfg.BaseRPS)))
	base.GET("/manage/health", h.Health)

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(rate.Limit(cfg.APIRPS)),
	)
	optional := md.OptionalJwtAuthentication(cfg.JWTSecret)
	required := md.JwtAuthentication(cfg.JWTSecret)

	books := api.Group("/books")
	books.GET("/search", h.SearchBooks, optional)
	books.GET("/isbn/:isbn", h.SearchByISBN)
	books.POST("/batch", h.BatchSearch)
	books.GET("/usage", h.Usage)
	books.GET("/cache", h.CacheStats, required, md.RequireAdmin)
	books.DELETE("/cache", h.ClearCache, required, md.RequireAdmin)
	books.POST("", h.CreateBook, required)
	books.GET("/:id", h.GetBook)

	reviews := api.Group("/reviews")
	reviews.GET("/feed", h.Feed, optional)
	reviews.POST("", h.CreateReview, required)
	reviews.GET("/:id", h.GetReview, optional)
	reviews.POST("/:id/publish", h.PublishReview, required)
	reviews.DELETE("/:id", h.DeleteReview, required)
	reviews.POST("/:id/like", h.Like, required)
	reviews.POST("/:id/bookmark", h.Bookmark, required)

	api.POST("/users/:id/follow", h.Follow, required)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func ok(c echo.Context, code int, data any) error {
	return c.JSON(code, model.OK(data))
}

// viewerID is 0 for anonymous requests.
func viewerID(c echo.Context) int64 {
	u, found := auth.FromContext(c.Request().Context())
	if !found {
		return 0
	}
	return u.ID
}

func userID(c echo.Context) (int64, error) {
	id, err := auth.GetUserID(c.Request().Context())
	if err != nil {
		return 0, errs.New(errs.Unauthorized, "login required")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.New(errs.InvalidParams, name+" is invalid").
			WithDetails(map[string]string{"field": name, "value": raw})
	}
	return id, nil
}

// queryInt returns 0 when the parameter is absent. Present values must be positive.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errs.New(errs.InvalidParams, name+" is invalid").
			WithDetails(map[string]string{"field": name, "value": raw})
	}
	return v, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errs.Wrap(err, errs.InvalidParams, "malformed request body")
	}
	if err := c.Validate(dst); err != nil {
		return errs.Wrap(err, errs.InvalidParams, "validation failed").
			WithDetails(validate.FieldErrors(err))
	}
	return nil
}

type actionRequest struct {
	Action string `json:"action" validate:"required"`
}
