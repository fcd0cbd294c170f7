// Package rest 提供只读查询面
// 核心的写路径只走操作面（trigger/bid/confirm由宿主提交），
// 本服务仅暴露查询与指标
package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apiconfig "github.com/xchain/v1/internal/config/api"
	"github.com/xchain/v1/internal/core/circuit"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/types"
)

// Server 查询服务
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	service  *circuit.Service
	accounts core.AccountManager
	xdns     core.Xdns
	config   *apiconfig.Config
	logger   log.Logger
}

// NewServer 创建查询服务
func NewServer(service *circuit.Service, accounts core.AccountManager, xdns core.Xdns,
	gatherer prometheus.Gatherer, config *apiconfig.Config, logger log.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(logger))

	s := &Server{
		engine:   engine,
		service:  service,
		accounts: accounts,
		xdns:     xdns,
		config:   config,
		logger:   logger,
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/xtx/:id", s.handleGetXtx)
		v1.GET("/sfx/:id", s.handleGetSfx)
		v1.GET("/account/:id/xtx", s.handleGetPendingXtx)
		v1.GET("/account/:id/balance", s.handleGetBalance)
		v1.GET("/gateways", s.handleListGateways)
	}
	return s
}

// Start 启动HTTP监听
func (s *Server) Start() error {
	if !s.config.IsEnabled() {
		s.logger.Info("查询服务未启用")
		return nil
	}
	s.server = &http.Server{Addr: s.config.GetAddr(), Handler: s.engine}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("查询服务异常退出: %v", err)
		}
	}()
	s.logger.Infof("查询服务启动: addr=%s", s.config.GetAddr())
	return nil
}

// Stop 优雅关停
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Engine 暴露底层引擎（测试使用）
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetXtx(c *gin.Context) {
	id, err := types.XtxIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的xtx标识"})
		return
	}
	xtx, err := s.service.GetXtx(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, circuit.ErrXtxNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "xtx不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	steps, err := s.service.Store().GetSteps(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"xtx": xtx, "steps": steps})
}

func (s *Server) handleGetSfx(c *gin.Context) {
	id, err := types.SfxIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的sfx标识"})
		return
	}
	fsx, xtxID, err := s.service.GetFSX(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, circuit.ErrXtxNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sfx不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fsx": fsx, "xtx_id": xtxID})
}

func (s *Server) handleGetPendingXtx(c *gin.Context) {
	account, err := types.AccountIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的账户标识"})
		return
	}
	list, err := s.service.GetPendingXtxFor(c.Request.Context(), account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"xtxs": list})
}

func (s *Server) handleGetBalance(c *gin.Context) {
	account, err := types.AccountIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的账户标识"})
		return
	}
	balance, err := s.accounts.BalanceOf(c.Request.Context(), account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "balance": balance})
}

func (s *Server) handleListGateways(c *gin.Context) {
	list, err := s.xdns.ListGateways(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gateways": list})
}
