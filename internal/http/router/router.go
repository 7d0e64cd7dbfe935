package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Revology-Analytics/revify-portal/internal/auth"
	"github.com/Revology-Analytics/revify-portal/internal/db"
	"github.com/Revology-Analytics/revify-portal/internal/filelist"
	"github.com/Revology-Analytics/revify-portal/internal/http/handlers"
	"github.com/Revology-Analytics/revify-portal/internal/http/middleware"
	"github.com/Revology-Analytics/revify-portal/internal/registration"
	"github.com/Revology-Analytics/revify-portal/internal/security"
	"github.com/Revology-Analytics/revify-portal/internal/storage"
)

type Deps struct {
	DB            *db.DB
	Auth          *auth.Service
	Files         *storage.Files
	FileList      *filelist.Controller
	Registrations *registration.Registry
	Sessions      *security.SessionStore
	MaxUploadSize int64
	Logger        *logrus.Logger
}

func Setup(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Observe(d.Logger))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.Auth, d.Registrations, d.Sessions, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.FileList, d.DB, d.Auth, d.Sessions, d.Logger)
	fileHandler := handlers.NewFileHandler(d.Files, d.MaxUploadSize, d.Logger)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/api/register", authHandler.RegistrationState).Methods("GET")
	r.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/logout", authHandler.Logout).Methods("POST")
	r.HandleFunc("/api/notifications", authHandler.Notifications).Methods("GET")

	requireUser := middleware.RequireUser(d.Sessions, d.Auth)

	files := r.PathPrefix("/api/files").Subrouter()
	files.Use(requireUser)
	files.HandleFunc("", fileHandler.UploadFile).Methods("POST")
	files.HandleFunc("", fileHandler.ListFiles).Methods("GET")

	uploads := r.PathPrefix("/uploads").Subrouter()
	uploads.Use(requireUser)
	uploads.HandleFunc("/{id}", fileHandler.DownloadFile).Methods("GET")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(requireUser, middleware.RequireAdmin)
	admin.HandleFunc("/files", adminHandler.ListFiles).Methods("GET")
	admin.HandleFunc("/files/search", adminHandler.SetSearchTerm).Methods("PUT")
	admin.HandleFunc("/files/refresh", adminHandler.RefreshFiles).Methods("POST")
	admin.HandleFunc("/files/{id}", adminHandler.DeleteFile).Methods("DELETE")
	admin.HandleFunc("/files/{id}/status", adminHandler.SetFileStatus).Methods("POST")
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{id}/approve", adminHandler.ApproveUser).Methods("POST")
	admin.HandleFunc("/users/{id}", adminHandler.DeleteUser).Methods("DELETE")

	return r
}
