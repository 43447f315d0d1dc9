package server

import (
	"net/http"

	"fleamarket-backend/internal/handler"
	authmw "fleamarket-backend/internal/middleware"
	"fleamarket-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type Server struct {
	echo           *echo.Echo
	jwtSecret      string
	confirmHandler *handler.ConfirmHandler
	userHandler    *handler.UserHandler
}

func NewServer(confirmService service.ConfirmService, userService service.UserService, jwtSecret string) *Server {
	e := echo.New()
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	confirmHandler := handler.NewConfirmHandler(confirmService)
	userHandler := handler.NewUserHandler(userService)

	s := &Server{
		echo:           e,
		jwtSecret:      jwtSecret,
		confirmHandler: confirmHandler,
		userHandler:    userHandler,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	authed := api.Group("", authmw.AuthMiddleware(s.jwtSecret))

	// -------- purchase confirmation --------
	confirms := authed.Group("/confirms")
	confirms.POST("", s.confirmHandler.CreateConfirmRequest)
	confirms.POST("/:confirmRequestID/respond", s.confirmHandler.RespondToConfirmRequest)
	confirms.GET("/:confirmRequestID", s.confirmHandler.GetConfirmRequestStatus)
	confirms.POST("/sweep", s.confirmHandler.SweepExpired)

	authed.GET("/conversations/:conversationID/messages", s.userHandler.GetConversationMessages)
	authed.GET("/purchases", s.userHandler.GetPurchases)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
