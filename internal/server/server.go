// Package server exposes a Predictor over HTTP: an HTML form for people and a
// JSON endpoint for programs.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"effpred/pkg/data"
	"effpred/pkg/pipeline"
	"effpred/pkg/schema"
)

//go:embed templates/index.html
var templates embed.FS

type Server struct {
	pred   *pipeline.Predictor
	means  map[string]float64
	log    *zap.Logger
	engine *gin.Engine
}

// New builds the router. means are the training feature means used to
// pre-fill the form; nil is fine.
func New(pred *pipeline.Predictor, means map[string]float64, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{pred: pred, means: means, log: log}

	tmpl := template.Must(template.ParseFS(templates, "templates/index.html"))

	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.Form)
	r.POST("/", s.SubmitForm)
	r.GET("/healthz", s.Health)
	api := r.Group("/api/v1")
	{
		api.POST("/predict", s.Predict)
	}
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

type formField struct {
	Name        string
	Categorical bool
	Options     []string
	Value       string
}

type page struct {
	Fields        []formField
	Result        string
	IsError       bool
	SchemaVersion string
}

func (s *Server) page(values data.Record) page {
	sc := s.pred.Schema()
	p := page{SchemaVersion: sc.Version}
	for _, f := range sc.Fields {
		ff := formField{Name: f.Name, Value: values[f.Name]}
		if f.Kind == schema.Categorical {
			ff.Categorical = true
			if enc := sc.Encoding(f.Name); enc != nil {
				ff.Options = enc.Classes
			}
		}
		p.Fields = append(p.Fields, ff)
	}
	return p
}

// Form renders the input form pre-filled with defaults.
func (s *Server) Form(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.page(FormDefaults(s.pred.Schema(), s.means, time.Now())))
}

// SubmitForm predicts from a form post and renders the result together with
// the submitted values.
func (s *Server) SubmitForm(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form: %v", err)
		return
	}
	fallback := Fallback(time.Now())
	rec := make(data.Record)
	for _, f := range s.pred.Schema().Fields {
		if vs, ok := c.Request.PostForm[f.Name]; ok && len(vs) > 0 {
			rec[f.Name] = vs[0]
		} else {
			rec[f.Name] = fallback[f.Name]
		}
	}

	res := s.pred.Predict(rec)
	if !res.OK() {
		s.log.Warn("prediction failed", zap.Error(res.Err))
	}
	p := s.page(rec)
	p.Result, p.IsError = res.Message(), !res.OK()
	c.HTML(http.StatusOK, "index.html", p)
}

type PredictRequest struct {
	Features map[string]any `json:"features" binding:"required"`
}

type PredictResponse struct {
	Label string `json:"label"`
	Class int    `json:"class"`
}

// Predict scores a JSON record. Fields of the form that are absent take their
// fallback value; extra keys such as Timestamp are passed through.
func (s *Server) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	rec := Fallback(time.Now())
	for k, v := range req.Features {
		str, err := featureString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": fmt.Sprintf("%s: %v", k, err)})
			return
		}
		rec[k] = str
	}

	res := s.pred.Predict(rec)
	if !res.OK() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, PredictResponse{Label: res.Label, Class: res.Class})
}

func featureString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// Health reports readiness and the schema the bundle was trained with.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"schema_version": s.pred.Schema().Version,
		"timestamp":      time.Now().UTC(),
	})
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully,
// letting in-flight requests finish within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
