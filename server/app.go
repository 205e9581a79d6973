package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sally/config"
	"sally/internal/crm"
	"sally/internal/db"
	"sally/internal/health"
	"sally/internal/insights"
	"sally/internal/logs"
	"sally/internal/middleware"
	"sally/internal/models"
	"sally/internal/portal"
	"sally/internal/repo"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) logging */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.Opportunity{},
		&models.Note{},
		&models.ClientPortal{},
		&models.EngagementStage{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	/* 3) stores + services */
	users := repo.NewUserStore(a.db)
	opps := repo.NewOpportunityStore(a.db)
	notes := repo.NewNoteStore(a.db)
	portals := repo.NewPortalStore(a.db)
	stages := repo.NewEngagementStore(a.db)

	crmSvc := crm.NewService(opps, notes, users, stages)
	portalSvc := portal.NewService(portals, opps, stages, a.cfg.Portal.DefaultExpiryDays)
	gen := insights.NewGenerator(
		a.cfg.Insights.APIURL,
		a.cfg.Insights.APIKey,
		a.cfg.Insights.Model,
		time.Duration(a.cfg.Insights.TimeoutSeconds)*time.Second,
	)

	/* 4) router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) health */
	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz

	/* 6) public client portal, no auth on purpose */
	portalHandler := portal.NewHandler(portalSvc)
	portal.RegisterPublicRoutes(a.Router, portalHandler)

	/* 7) authenticated dashboard API */
	api := a.Router.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequireIdentity(a.cfg.Auth.ProxySecret))
	crm.RegisterRoutes(api, crm.NewHandler(crmSvc))
	portal.RegisterRoutes(api, portalHandler)
	insights.RegisterRoutes(api, insights.NewHandler(gen))

	/* optionally log the known routes at startup */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// hard timeouts matter in production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
