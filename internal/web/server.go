package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/poolcare-ownerverify/internal/importer"
	"github.com/poolcare-ownerverify/internal/store"
	"github.com/poolcare-ownerverify/internal/verify"
	"github.com/poolcare-ownerverify/internal/web/handlers"
	"github.com/poolcare-ownerverify/internal/web/middleware"
)

// Server wires the verification pipeline, reconciler and importer behind
// the HTTP API used by the admin screens.
type Server struct {
	config     *Config
	db         *sql.DB
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a web server over an open database connection.
func NewServer(config *Config, db *sql.DB) *Server {
	server := &Server{
		config: config,
		db:     db,
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	dataStore := store.NewPostgres(s.db)
	pipeline := verify.NewPipeline(verify.NewLocator(dataStore), dataStore)
	reconciler := verify.NewReconciler(dataStore, dataStore)
	rollImporter := importer.NewImporter(s.db)

	handlerConfig := &handlers.Config{}
	handlerConfig.Features.ImportEnabled = s.config.Features.ImportEnabled
	handlerConfig.Features.WritesEnabled = s.config.Features.WritesEnabled

	customersHandler := &handlers.CustomersHandler{
		Store:      dataStore,
		Pipeline:   pipeline,
		Reconciler: reconciler,
		Config:     handlerConfig,
	}
	assessorHandler := &handlers.AssessorHandler{
		Store:      dataStore,
		Reconciler: reconciler,
		Config:     handlerConfig,
	}
	importHandler := &handlers.ImportHandler{
		Store:    dataStore,
		Importer: rollImporter,
		Config:   handlerConfig,
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// Verification workflow
	api.HandleFunc("/customers/pending", customersHandler.ListPending).Methods("GET")
	api.HandleFunc("/customers/{id:[0-9]+}/verify", customersHandler.Verify).Methods("POST")
	api.HandleFunc("/customers/{id:[0-9]+}/candidates", customersHandler.Candidates).Methods("GET")
	api.HandleFunc("/customers/{id:[0-9]+}/history", customersHandler.History).Methods("GET")
	api.HandleFunc("/verify/batch", customersHandler.VerifyBatch).Methods("POST")

	// Reconciler actions (operator decisions)
	api.HandleFunc("/customers/{id:[0-9]+}/accept", customersHandler.Accept).Methods("POST")
	api.HandleFunc("/customers/{id:[0-9]+}/owner-change", customersHandler.OwnerChange).Methods("POST")
	api.HandleFunc("/customers/{id:[0-9]+}/adopt-mailing", customersHandler.AdoptMailing).Methods("POST")
	api.HandleFunc("/customers/{id:[0-9]+}/flag-non-pima", customersHandler.FlagNonPima).Methods("POST")

	// Assessor dataset
	api.HandleFunc("/assessor/search", assessorHandler.Search).Methods("GET")
	api.HandleFunc("/assessor/{id:[0-9]+}", assessorHandler.Get).Methods("GET")
	api.HandleFunc("/assessor/{id:[0-9]+}/owner-name", assessorHandler.UpdateOwnerName).Methods("PUT")

	// Roll import
	api.HandleFunc("/import/batch", importHandler.RunBatch).Methods("POST")
	api.HandleFunc("/import/progress", importHandler.Progress).Methods("GET")
	api.HandleFunc("/stats", importHandler.Stats).Methods("GET")

	s.router.HandleFunc("/health", s.health).Methods("GET")

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging())

	if s.config.Auth.Enabled {
		api.Use(middleware.Authentication(s.config.Auth.APIKey))
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		fmt.Printf("Starting server on http://%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	<-stop
	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("Server shutdown error: %v\n", err)
	}

	fmt.Println("Server stopped")
	return nil
}
