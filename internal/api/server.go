package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ticketgate/gate-api/docs"
	v1 "github.com/ticketgate/gate-api/internal/api/handler/v1"
	"github.com/ticketgate/gate-api/internal/api/middleware"
	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/config"
	"github.com/ticketgate/gate-api/internal/occupancy"
	"github.com/ticketgate/gate-api/internal/pkg/clock"
	"github.com/ticketgate/gate-api/internal/pkg/keylock"
	"github.com/ticketgate/gate-api/internal/repository"
	"github.com/ticketgate/gate-api/internal/repository/dao"
	"github.com/ticketgate/gate-api/internal/service"
)

type Server struct {
	Config    *config.AppConfig
	Router    *gin.Engine
	Occupancy *occupancy.Aggregator

	attendees *repository.AttendeeRepository
	events    *repository.EventRepository
	clock     clock.Clock
}

// NewServer wires the record store, cache and services behind the router.
// provider may be nil when rosters are only pushed through the import
// endpoint.
func NewServer(conf *config.AppConfig, db *gorm.DB, backend cache.Backend, provider service.Provider) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	c := cache.New(backend, cache.Options{
		ValueTTL:    conf.Cache.ValueTTL,
		NotFoundTTL: conf.Cache.NotFoundTTL,
	})

	s := &Server{
		Config:    conf,
		Router:    engine,
		attendees: repository.NewAttendeeRepository(dao.NewAttendeeDAO(db), c),
		events:    repository.NewEventRepository(dao.NewEventDAO(db), c),
		clock:     clock.Real(),
	}
	s.Occupancy = occupancy.NewAggregator(s.attendees, c, s.clock, occupancy.Config{
		QueueSize:        conf.Occupancy.QueueSize,
		Workers:          conf.Occupancy.Workers,
		StaleAfter:       conf.Occupancy.StaleAfter,
		RecomputeTimeout: conf.Occupancy.RecomputeTimeout,
		SubscriberBuffer: conf.Occupancy.SubscriberBuffer,
	})

	s.MountMiddlewares()

	scanHandler := s.initScanHandler()
	attendeeHandler := s.initAttendeeHandler(provider)
	occupancyHandler := s.initOccupancyHandler()
	s.MountHandlers(scanHandler, attendeeHandler, occupancyHandler)

	return s
}

func (s *Server) initScanHandler() *v1.ScanHandler {
	svc := service.NewAdmissionService(s.attendees, s.events, keylock.New(), s.Occupancy, s.clock, service.AdmissionConfig{
		DefaultGraceWindow: s.Config.Admission.DefaultGraceWindow,
		MaxBulkItems:       s.Config.Admission.MaxBulkItems,
	})
	handler := v1.NewScanHandler(svc)

	return handler
}

func (s *Server) initAttendeeHandler(provider service.Provider) *v1.AttendeeHandler {
	gate := service.NewEventGate(s.events, s.clock, s.Config.Admission.DefaultGraceWindow)
	syncSvc := service.NewSyncService(s.attendees, s.events, gate, provider)
	rosterSvc := service.NewRosterService(s.attendees)
	handler := v1.NewAttendeeHandler(rosterSvc, syncSvc)

	return handler
}

func (s *Server) initOccupancyHandler() *v1.OccupancyHandler {
	return v1.NewOccupancyHandler(s.Occupancy, s.Config.API.AllowedCORSDomains)
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.Logger())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(scanHandler *v1.ScanHandler, attendeeHandler *v1.AttendeeHandler, occupancyHandler *v1.OccupancyHandler) {
	const basePath = "/api/v1"

	timeout := middleware.Timeout(s.Config.API.RequestTimeout)
	events := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		events.PUT("/events/:eventID", timeout, attendeeHandler.HandleUpsertEvent)
		events.PUT("/events/:eventID/ticket-types/:name", timeout, attendeeHandler.HandleUpsertTicketType)

		events.POST("/events/:eventID/scans", timeout, scanHandler.HandleScan)
		events.POST("/events/:eventID/scans/advanced", timeout, scanHandler.HandleAdvancedScan)
		events.POST("/events/:eventID/scans/bulk", timeout, scanHandler.HandleBulkScan)
		events.POST("/events/:eventID/attendees/:ticketCode/reset-counters", timeout, scanHandler.HandleResetCounters)

		events.GET("/events/:eventID/attendees", timeout, attendeeHandler.HandleListAttendees)
		events.GET("/events/:eventID/attendees/:ticketCode", timeout, attendeeHandler.HandleGetAttendee)
		events.GET("/events/:eventID/attendees/:ticketCode/history", timeout, attendeeHandler.HandleGetHistory)
		events.POST("/events/:eventID/attendees/import", timeout, attendeeHandler.HandleImportRoster)
		events.POST("/events/:eventID/attendees/sync", timeout, attendeeHandler.HandleSyncRoster)

		events.GET("/events/:eventID/occupancy", timeout, occupancyHandler.HandleGetOccupancy)
		// No timeout: the connection lives as long as the client stays.
		events.GET("/events/:eventID/occupancy/live", occupancyHandler.HandleLiveOccupancy)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "gate-api"
	docs.SwaggerInfo.Description = "Admission control for ticketed events."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// and stops the occupancy workers.
func (s *Server) Run(ctx context.Context) error {
	// Workers outlive the signal so scans still draining in Shutdown can
	// notify; the deferred Stop runs after Shutdown returns.
	s.Occupancy.Start(context.WithoutCancel(ctx))
	defer s.Occupancy.Stop()

	srv := &http.Server{
		Addr:              ":" + s.Config.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("srv.ListenAndServe -> %w", err)
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("srv.Shutdown -> %w", err)
	}

	return nil
}
