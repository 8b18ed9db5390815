package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/hairizuan-noorazman/repair-desk/archive"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/session"
	"github.com/hairizuan-noorazman/repair-desk/shop"
)

// Dependencies are the process-wide services the routes use.
type Dependencies struct {
	JobStore       job.Store
	Sessions       *session.Manager
	Archive        *archive.Archive
	Mailer         notify.Mailer
	NotifyAPIKey   string
	Feed           SubscriberCounter
	AllowedOrigins []string
	Shop           shop.Profile
	CookieName     string
	CookieSecret   string
	CookieSecure   bool
	AccessCodeHash string
	Logger         logger.Logger
}

// NewRouter wires every route.
func NewRouter(d Dependencies) *mux.Router {
	codec := securecookie.New([]byte(d.CookieSecret), nil)

	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)

	authMiddleware := NewAuthMiddleware(d.Sessions, codec, d.CookieName, d.Logger)

	// Public routes
	router.HandleFunc("/health", NewHealthHandler(d.Feed)).Methods(http.MethodGet)
	router.Handle("/api/send-email", NewSendEmailHandler(d.Mailer, d.NotifyAPIKey, authMiddleware, d.Logger))

	sessionHandler := NewSessionHandler(d.Sessions, codec, d.CookieName, d.CookieSecure, d.AccessCodeHash, d.Logger)
	router.HandleFunc("/api/v1/session", sessionHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/session", sessionHandler.Logout).Methods(http.MethodDelete)

	// Session routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMiddleware.Handler)

	jobHandler := NewJobHandler(d.JobStore, d.Archive, d.Shop, d.Logger)
	apiRouter.HandleFunc("/jobs", jobHandler.List).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs", jobHandler.Create).Methods(http.MethodPost)
	apiRouter.HandleFunc("/jobs/{id}", jobHandler.GetByID).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{id}", jobHandler.Delete).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/jobs/{id}/staged-status", jobHandler.Stage).Methods(http.MethodPut)
	apiRouter.HandleFunc("/jobs/{id}/staged-status", jobHandler.Discard).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/jobs/{id}/commit", jobHandler.Commit).Methods(http.MethodPost)
	apiRouter.HandleFunc("/jobs/{id}/notify", jobHandler.Notify).Methods(http.MethodPost)
	apiRouter.HandleFunc("/jobs/{id}/receipt", jobHandler.Receipt).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{id}/receipt/archive", jobHandler.ArchiveReceipt).Methods(http.MethodPost)

	exportHandler := NewExportHandler(d.Archive, d.Logger)
	apiRouter.HandleFunc("/export.csv", exportHandler.Download).Methods(http.MethodGet)
	apiRouter.HandleFunc("/exports", exportHandler.Save).Methods(http.MethodPost)
	apiRouter.HandleFunc("/exports", exportHandler.List).Methods(http.MethodGet)
	apiRouter.HandleFunc("/exports/{name}", exportHandler.Get).Methods(http.MethodGet)

	apiRouter.Handle("/live", NewLiveHandler(d.JobStore, d.AllowedOrigins, d.Logger)).Methods(http.MethodGet)

	return router
}
