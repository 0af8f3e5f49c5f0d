package api

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LJTian/NewsDigest/internal/pipeline"
	"github.com/LJTian/NewsDigest/internal/scheduler"
	"github.com/LJTian/NewsDigest/internal/storage"
)

// Trigger HTTP 手动触发走与定时任务相同的入口
type Trigger interface {
	TriggerAsync() bool
	State() scheduler.State
	LastReport() (pipeline.Report, bool)
	Next() time.Time
}

type Server struct {
	store   storage.SubscriberStore
	trigger Trigger
	admin   gin.HandlerFunc
}

func NewServer(store storage.SubscriberStore, trigger Trigger) *Server {
	return &Server{store: store, trigger: trigger}
}

// WithAdminAuth 订阅者列表和退订接口需要的账号；未设置时这两个接口一律 403
func (s *Server) WithAdminAuth(user, pass string) *Server {
	if user != "" && pass != "" {
		s.admin = BasicAuth(user, pass)
	}
	return s
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := s.admin
	if admin == nil {
		admin = forbidden
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/subscribe", s.subscribe)
		v1.GET("/subscribers", admin, s.listSubscribers)
		v1.DELETE("/subscribers/:email", admin, s.unsubscribe)
		v1.POST("/run", s.triggerRun)
		v1.GET("/run", s.runStatus)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// subscribeRequest 兼容 JSON 请求体与 ?email=&category= 查询参数两种写法
type subscribeRequest struct {
	Email       string   `json:"email" form:"email" binding:"required,email"`
	Preference  string   `json:"preference" form:"category"`
	Preferences []string `json:"preferences" form:"-"`
}

func (r subscribeRequest) prefs() []string {
	out := append([]string{}, r.Preferences...)
	if r.Preference != "" {
		out = append(out, r.Preference)
	}
	return out
}

func (s *Server) subscribe(c *gin.Context) {
	var req subscribeRequest
	var err error
	if strings.HasPrefix(c.ContentType(), "application/json") && c.Request.ContentLength != 0 {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": "a valid email is required",
		})
		return
	}

	err = s.store.Add(c.Request.Context(), req.Email, req.prefs())
	switch {
	case errors.Is(err, storage.ErrSubscriberExists):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "already_subscribed",
			"message": "email already subscribed",
		})
	case err != nil:
		log.Printf("subscribe %s error: %v", req.Email, err)
		internalError(c)
	default:
		c.JSON(http.StatusOK, gin.H{
			"code":    "ok",
			"message": "subscribed",
			"data":    gin.H{"email": storage.NormalizeEmail(req.Email)},
		})
	}
}

func (s *Server) listSubscribers(c *gin.Context) {
	subs, err := s.store.List(c.Request.Context())
	if err != nil {
		log.Printf("list subscribers error: %v", err)
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    subs,
	})
}

func (s *Server) unsubscribe(c *gin.Context) {
	err := s.store.Remove(c.Request.Context(), c.Param("email"))
	switch {
	case errors.Is(err, storage.ErrSubscriberNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "subscriber not found",
		})
	case err != nil:
		log.Printf("unsubscribe error: %v", err)
		internalError(c)
	default:
		c.JSON(http.StatusOK, gin.H{"code": "ok", "message": "unsubscribed"})
	}
}

func (s *Server) triggerRun(c *gin.Context) {
	if !s.trigger.TriggerAsync() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "run_in_progress",
			"message": "a run is already in progress",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": "ok", "message": "run started"})
}

func (s *Server) runStatus(c *gin.Context) {
	data := gin.H{"state": s.trigger.State().String()}
	if next := s.trigger.Next(); !next.IsZero() {
		data["nextRun"] = next
	}
	if last, ok := s.trigger.LastReport(); ok {
		data["lastRun"] = last
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code":    "forbidden",
		"message": "admin credentials not configured",
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
