// Package server exposes the HTTP surface: request parsing, account
// resolution, and the REST routes for catalog, floor plan, orders and
// custom-field administration.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mesa/internal/account"
	accountdomain "github.com/smallbiznis/mesa/internal/account/domain"
	"github.com/smallbiznis/mesa/internal/config"
	"github.com/smallbiznis/mesa/internal/customfield"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/smallbiznis/mesa/internal/item"
	itemdomain "github.com/smallbiznis/mesa/internal/item/domain"
	"github.com/smallbiznis/mesa/internal/order"
	orderdomain "github.com/smallbiznis/mesa/internal/order/domain"
	"github.com/smallbiznis/mesa/internal/ratelimit"
	"github.com/smallbiznis/mesa/internal/room"
	roomdomain "github.com/smallbiznis/mesa/internal/room/domain"
	"github.com/smallbiznis/mesa/internal/table"
	tabledomain "github.com/smallbiznis/mesa/internal/table/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	account.Module,
	customfield.Module,
	item.Module,
	room.Module,
	table.Module,
	order.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	limiter    *ratelimit.WriteLimiter
	accountSvc accountdomain.Service
	fieldSvc   cfdomain.Service
	itemSvc    itemdomain.Service
	roomSvc    roomdomain.Service
	tableSvc   tabledomain.Service
	orderSvc   orderdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Limiter    *ratelimit.WriteLimiter
	AccountSvc accountdomain.Service
	FieldSvc   cfdomain.Service
	ItemSvc    itemdomain.Service
	RoomSvc    roomdomain.Service
	TableSvc   tabledomain.Service
	OrderSvc   orderdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log,
		limiter:    p.Limiter,
		accountSvc: p.AccountSvc,
		fieldSvc:   p.FieldSvc,
		itemSvc:    p.ItemSvc,
		roomSvc:    p.RoomSvc,
		tableSvc:   p.TableSvc,
		orderSvc:   p.OrderSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(AccountMiddleware(s.cfg))
	api.Use(WriteRateLimitMiddleware(s.limiter, s.log))

	api.POST("/accounts", s.CreateAccount)
	api.GET("/accounts", s.ListAccounts)
	api.GET("/accounts/:id", s.GetAccount)

	api.POST("/custom-fields", s.CreateCustomField)
	api.GET("/custom-fields", s.ListCustomFields)
	api.GET("/custom-fields/:id", s.GetCustomField)
	api.PATCH("/custom-fields/:id", s.UpdateCustomField)
	api.DELETE("/custom-fields/:id", s.DeleteCustomField)

	api.POST("/items", s.CreateItem)
	api.GET("/items", s.ListItems)
	api.GET("/items/:id", s.GetItem)
	api.PATCH("/items/:id", s.UpdateItem)
	api.DELETE("/items/:id", s.DeleteItem)
	api.POST("/item-types", s.CreateItemType)
	api.GET("/item-types", s.ListItemTypes)
	api.POST("/tags", s.CreateTag)
	api.GET("/tags", s.ListTags)

	api.POST("/rooms", s.CreateRoom)
	api.GET("/rooms", s.ListRooms)
	api.GET("/rooms/:id", s.GetRoom)
	api.PATCH("/rooms/:id", s.UpdateRoom)
	api.DELETE("/rooms/:id", s.DeleteRoom)

	api.POST("/tables", s.CreateTable)
	api.GET("/tables", s.ListTables)
	api.GET("/tables/:id", s.GetTable)
	api.PATCH("/tables/:id", s.UpdateTable)
	api.DELETE("/tables/:id", s.DeleteTable)

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:id", s.GetOrder)
	api.PATCH("/orders/:id", s.UpdateOrder)
	api.DELETE("/orders/:id", s.DeleteOrder)
}
