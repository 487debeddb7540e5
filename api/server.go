package api

import (
	"fmt"
	"net/http"

	"github.com/AurumGate/AurumGate-Portal/models"
	"github.com/AurumGate/AurumGate-Portal/providers"
	"github.com/AurumGate/AurumGate-Portal/providers/backend"
	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/AurumGate/AurumGate-Portal/services/notification"
	"github.com/AurumGate/AurumGate-Portal/services/portal"
	"github.com/AurumGate/AurumGate-Portal/services/session"
	"github.com/AurumGate/AurumGate-Portal/utils"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router   *gin.Engine
	config   *utils.Config
	logger   *logging.Logger
	provider *providers.ProviderService
	portal   *portal.Service
	sessions *session.Store
}

func NewServer(envPath string) *Server {
	c, err := utils.LoadConfig(envPath)
	if err != nil {
		panic(fmt.Sprintf("Could not load config: %v", err))
	}

	l := logging.NewLogger(c.Papertrail, c.PapertrailAppName)
	l.Info(fmt.Sprintf("Starting portal with config: %+v", c.Redact()))

	sessions, err := session.NewStore(&session.StoreConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
	})
	if err != nil {
		panic(fmt.Sprintf("Could not connect session store: %v", err))
	}

	ps := providers.NewProviderService()

	// Set up the upstream banking backend
	b := backend.NewBackendProvider(c.BackendBaseURL, l)
	ps.AddProvider(b)
	ps.AddProvider(&providers.BaseProvider{
		Name:    providers.MarketFeed,
		BaseURL: c.MarketFeedURL,
	})

	notifier := notification.NewLogNotifier(l)
	p := portal.NewService(c, l, b, notifier)

	g := gin.Default()
	g.Use(CORSMiddleware())
	g.Use(l.LoggingMiddleWare())

	return &Server{
		router:   g,
		config:   c,
		logger:   l,
		provider: ps,
		portal:   p,
		sessions: sessions,
	}
}

func (s *Server) Start() {

	dr := models.SuccessResponse{
		Status:  "success",
		Message: "Welcome to AurumGate!",
		Version: utils.REVISION,
	}

	s.router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dr)
	})

	s.router.GET("/health", func(ctx *gin.Context) {
		upstreams := make(map[string]string)
		for _, name := range []string{providers.AurumBackend, providers.MarketFeed} {
			if p, ok := s.provider.GetProvider(name); ok {
				upstreams[name] = p.GetBaseURL()
			}
		}
		ctx.JSON(http.StatusOK, models.SuccessResponse{
			Status:  "success",
			Message: "healthy",
			Data:    upstreams,
			Version: utils.REVISION,
		})
	})

	/// Register Object Routers Below
	Registration{}.router(s)
	Portal{}.router(s)

	s.portal.StartMarketFeed()

	s.router.Run(fmt.Sprintf(":%v", s.config.PortalPort))
}
