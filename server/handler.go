package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/letrongvang/go-profile-card/guestbook"
	"github.com/letrongvang/go-profile-card/profile"
	"github.com/letrongvang/go-profile-card/visit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Deps carries everything the router serves.
type Deps struct {
	Log       *zap.Logger
	Card      *profile.Card
	Syncer    *visit.Syncer
	Guestbook *guestbook.Service
	Hub       *Hub
	StaticDir string
}

type signRequest struct {
	Name    string `json:"name" binding:"required,min=2"`
	Message string `json:"message"`
}

// NewRouter creates the HTTP handler with all routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	// Recovery is the generic top-level failure notice; nothing below it is
	// allowed to crash the page.
	r.Use(gin.Recovery(), requestLogger(d.Log))

	api := r.Group("/api")

	api.GET("/profile", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Card)
	})

	api.GET("/visitors", func(c *gin.Context) {
		snap := d.Syncer.Last()
		resp := gin.H{"count": nil, "error": nil, "state": snap.State.String()}
		if snap.Known {
			resp["count"] = snap.Count
		}
		if snap.Err != "" {
			resp["error"] = snap.Err
		}
		c.JSON(http.StatusOK, resp)
	})

	api.POST("/guestbook", func(c *gin.Context) {
		var req signRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission: " + guestbook.ErrNameTooShort.Error()})
			return
		}
		err := d.Guestbook.Submit(c.Request.Context(), req.Name, req.Message)
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, gin.H{"status": "ok"})
		case errors.Is(err, guestbook.ErrNameTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, guestbook.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
	})

	api.GET("/guestbook", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		entries, err := d.Guestbook.List(c.Request.Context(), limit)
		if errors.Is(err, guestbook.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	})

	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			d.Log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := newClient(d.Hub, conn, d.Log)
		d.Hub.register <- client
		go client.WritePump()
		go client.ReadPump()
	})

	// Serve the page assets.
	if d.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(d.StaticDir))))
	}

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
