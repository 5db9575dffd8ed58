package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmorgan81/sdxlgen/internal/feed"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/log"
	"github.com/dmorgan81/sdxlgen/internal/page"
	"github.com/dmorgan81/sdxlgen/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/samber/do"
)

const downloadName = "generated-image.png"

type Server struct {
	session   *session.Session
	templator *page.Templator
	feed      *feed.Generator
}

func New(s *session.Session, t *page.Templator, f *feed.Generator) *Server {
	return &Server{session: s, templator: t, feed: f}
}

func NewServer(i *do.Injector) (*Server, error) {
	return New(
		do.MustInvoke[*session.Session](i),
		do.MustInvoke[*page.Templator](i),
		do.MustInvoke[*feed.Generator](i),
	), nil
}

type historyResponse struct {
	Images  []image.GeneratedImage `json:"images"`
	Prompts []string               `json:"prompts"`
}

// Routes builds the gin engine. ctx carries the logger handed to every
// request.
func (s *Server) Routes(ctx context.Context) *gin.Engine {
	logger := log.FromContextOrDiscard(ctx)

	r := gin.New()
	r.Use(gin.Recovery(), func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(log.NewContext(c.Request.Context(), logger))
		c.Next()
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "duration", time.Since(start))
	})

	r.GET("/", s.IndexHandler)
	r.POST("/generate", s.GenerateHandler)
	r.GET("/download", s.DownloadHandler)
	r.GET("/api/history", s.HistoryHandler)
	r.GET("/feed.rss", s.FeedHandler)
	return r
}

func (s *Server) IndexHandler(c *gin.Context) {
	if p, ok := c.GetQuery("prompt"); ok {
		s.session.SetPrompt(p)
	}
	s.render(c, http.StatusOK)
}

func (s *Server) render(c *gin.Context, status int) {
	html, err := s.templator.Template(c.Request.Context(), s.session.Snapshot())
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.Data(status, "text/html; charset=utf-8", html)
}

func (s *Server) GenerateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	_, err := s.session.Submit(ctx, c.PostForm("prompt"))
	switch {
	case errors.Is(err, session.ErrBusy):
		s.render(c, http.StatusConflict)
		return
	case err != nil:
		log.FromContextOrDiscard(ctx).Warn("generate request failed", "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) DownloadHandler(c *gin.Context) {
	img := s.session.Snapshot().GeneratedImage
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no image has been generated"})
		return
	}
	data, err := img.PNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) HistoryHandler(c *gin.Context) {
	state := s.session.Snapshot()
	c.JSON(http.StatusOK, historyResponse{Images: state.RecentImages, Prompts: state.RecentPrompts})
}

func (s *Server) FeedHandler(c *gin.Context) {
	rss, err := s.feed.Generate(c.Request.Context(), s.session.Snapshot().RecentImages)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", rss)
}

// Serve runs the engine on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("server").With("addr", addr)

	srv := &http.Server{Addr: addr, Handler: s.Routes(ctx)}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
