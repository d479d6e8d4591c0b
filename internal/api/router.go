// Package api mounts the task routes, the metrics endpoint and the index
// page on a gin engine.
package api

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	infragin "github.com/jonesrussell/task-registry/infrastructure/gin"
	inframetrics "github.com/jonesrussell/task-registry/infrastructure/metrics"
	"github.com/jonesrussell/task-registry/internal/handlers"
)

// RouteConfig carries what the routes need beyond the handler.
type RouteConfig struct {
	// APIPrefix is the task API mount point, e.g. /api.
	APIPrefix string
	// JWTSecret enables bearer auth on the API group when set.
	JWTSecret string
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// HTTPMetrics records per-route request metrics when set.
	HTTPMetrics *inframetrics.HTTPMetrics
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Task Registry</title></head>
<body>
<h1>Task Registry</h1>
<ul>
<li><code>POST {{.Prefix}}/tasks</code> create a task</li>
<li><code>GET {{.Prefix}}/tasks?status=&amp;site_type=&amp;q=&amp;limit=&amp;offset=</code> list tasks</li>
<li><code>GET {{.Prefix}}/tasks/{id}</code> read a task</li>
<li><code>PATCH {{.Prefix}}/tasks/{id}</code> update a task</li>
<li><code>DELETE {{.Prefix}}/tasks/{id}</code> delete a task</li>
<li><a href="/health"><code>GET /health</code></a> health</li>
<li><a href="/metrics"><code>GET /metrics</code></a> metrics</li>
</ul>
</body>
</html>
`))

// SetupRoutes registers every route except health, which the server builder
// owns.
func SetupRoutes(router *gin.Engine, handler *handlers.TaskHandler, cfg RouteConfig) {
	if cfg.HTTPMetrics != nil {
		router.Use(cfg.HTTPMetrics.Middleware())
	}

	router.SetHTMLTemplate(indexTemplate)
	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index", gin.H{"Prefix": cfg.APIPrefix})
	})

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	handler.Register(infragin.ProtectedGroup(router, cfg.APIPrefix, cfg.JWTSecret))
}
