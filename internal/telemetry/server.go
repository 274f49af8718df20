package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	metricsRouteConstant                = "/metrics"
	healthRouteConstant                 = "/healthz"
	readinessRouteConstant              = "/readyz"
	statusFieldConstant                 = "status"
	statusOKConstant                    = "ok"
	statusReadyConstant                 = "ready"
	statusPendingConstant               = "pending"
	readHeaderTimeoutConstant           = 5 * time.Second
	metricsServerStartedMessageConstant = "metrics server listening"
	metricsServerFailedMessageConstant  = "metrics server stopped unexpectedly"
	metricsServerStoppedMessageConstant = "metrics server stopped"
	metricsAddressLogFieldConstant      = "address"
)

// ErrMetricsAddressRequired indicates the server was asked to listen without an address.
var ErrMetricsAddressRequired = errors.New("metrics address must be provided")

// MetricsServer exposes the collector and health endpoints over HTTP.
type MetricsServer struct {
	address  string
	logger   *zap.Logger
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer builds the routes. Nothing listens until Start.
func NewMetricsServer(address string, collector *Collector, logger *zap.Logger) *MetricsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET(metricsRouteConstant, gin.WrapH(collector.Handler()))
	engine.GET(healthRouteConstant, func(requestContext *gin.Context) {
		requestContext.JSON(http.StatusOK, gin.H{statusFieldConstant: statusOKConstant})
	})
	engine.GET(readinessRouteConstant, func(requestContext *gin.Context) {
		if collector.Ready() {
			requestContext.JSON(http.StatusOK, gin.H{statusFieldConstant: statusReadyConstant})
			return
		}
		requestContext.JSON(http.StatusServiceUnavailable, gin.H{statusFieldConstant: statusPendingConstant})
	})

	return &MetricsServer{
		address: strings.TrimSpace(address),
		logger:  logger,
		engine:  engine,
	}
}

// Handler returns the routed engine.
func (metricsServer *MetricsServer) Handler() http.Handler {
	return metricsServer.engine
}

// Start binds the listener and serves in the background.
func (metricsServer *MetricsServer) Start() error {
	if len(metricsServer.address) == 0 {
		return ErrMetricsAddressRequired
	}
	listener, listenError := net.Listen("tcp", metricsServer.address)
	if listenError != nil {
		return listenError
	}
	metricsServer.listener = listener
	metricsServer.server = &http.Server{Handler: metricsServer.engine, ReadHeaderTimeout: readHeaderTimeoutConstant}

	metricsServer.logger.Info(metricsServerStartedMessageConstant, zap.String(metricsAddressLogFieldConstant, listener.Addr().String()))
	go func() {
		if serveError := metricsServer.server.Serve(listener); serveError != nil && !errors.Is(serveError, http.ErrServerClosed) {
			metricsServer.logger.Error(metricsServerFailedMessageConstant, zap.Error(serveError))
		}
	}()
	return nil
}

// Address reports the bound address, which differs from the configured one when port 0 was requested.
func (metricsServer *MetricsServer) Address() string {
	if metricsServer.listener == nil {
		return metricsServer.address
	}
	return metricsServer.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (metricsServer *MetricsServer) Shutdown(shutdownContext context.Context) error {
	if metricsServer.server == nil {
		return nil
	}
	shutdownError := metricsServer.server.Shutdown(shutdownContext)
	metricsServer.logger.Debug(metricsServerStoppedMessageConstant, zap.String(metricsAddressLogFieldConstant, metricsServer.Address()))
	return shutdownError
}
