package utils

import (
	"context"
	"net/http"
	"sync"

	_ "github.com/akolanti/DocVault/cmd/api/docs"
	"github.com/akolanti/DocVault/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

var once sync.Once
var router *chi.Mux

func GetNewUUID() string {
	return uuid.New().String()
}

type RouterClient struct {
	Router *chi.Mux
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// GetRouter returns the process wide router.
func GetRouter() RouterClient {
	once.Do(func() {
		router = NewRouter().Router
	})

	return RouterClient{Router: router}
}

// NewRouter builds a router with swagger and /metrics mounted.
func NewRouter() RouterClient {
	r := chi.NewRouter()
	InitSwagger(r)
	//register prometheus
	r.Handle("/metrics", promhttp.Handler())
	return RouterClient{Router: r}
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}

func TraceIdFromContext(ctx context.Context) string {
	id, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return id
}

// DepartmentFromContext returns the department the request was authenticated
// for, or "" when there is none.
func DepartmentFromContext(ctx context.Context) string {
	dept, _ := ctx.Value(config.DEPARTMENT_KEY).(string)
	return dept
}
