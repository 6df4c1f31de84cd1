package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"github.com/pesaflow/remit/internal/core/handler"
	"github.com/pesaflow/remit/internal/core/ledger/stellar"
	"github.com/pesaflow/remit/internal/core/logger"
	middlWre "github.com/pesaflow/remit/internal/core/middleware"
	"github.com/pesaflow/remit/internal/core/notify"
	"github.com/pesaflow/remit/internal/core/queue/rabbitmq"
	"github.com/pesaflow/remit/internal/core/reconciler"
	"github.com/pesaflow/remit/internal/core/repository/postgres"
	"github.com/pesaflow/remit/internal/core/security"
	"github.com/pesaflow/remit/internal/core/sweeper"
	"github.com/pesaflow/remit/internal/core/usecase"
	"github.com/pesaflow/remit/pkg/config"
	"github.com/pesaflow/remit/pkg/postgresdb"
)

// Server owns the HTTP surface plus the background reconcile consumer and
// batch sweeper. Publishing and consuming use separate AMQP channels on one
// connection.
type Server struct {
	router     *mux.Router
	log        logger.Logger
	httpServer *http.Server
	db         *postgresdb.Database

	amqpConn *amqp.Connection
	pubChan  *amqp.Channel
	consChan *amqp.Channel

	consumer *rabbitmq.Consumer
	sweeper  *sweeper.Sweeper

	cancelBackground context.CancelFunc

	walletHandler     *handler.WalletHandler
	transferHandler   *handler.TransferHandler
	remittanceHandler *handler.RemittanceHandler
	scheduleHandler   *handler.ScheduleHandler
}

func NewServer(cfg *config.Config, log logger.Logger) (*Server, error) {
	db, err := postgresdb.NewPostgresDB(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	crypt, err := security.NewEncryption(cfg.Security.WalletMasterKey)
	if err != nil {
		return nil, err
	}

	network, err := stellar.NewClient(cfg.Stellar, log)
	if err != nil {
		return nil, err
	}

	amqpConn, err := amqp.Dial(cfg.Queue.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	pubChan, err := amqpConn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	consChan, err := amqpConn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consume channel: %w", err)
	}

	publisher, err := rabbitmq.NewPublisher(pubChan, cfg.Queue.Exchange, cfg.Queue.ReconcileKey)
	if err != nil {
		return nil, err
	}
	notifier, err := notify.NewAMQPNotifier(pubChan, cfg.Queue.Exchange)
	if err != nil {
		return nil, err
	}

	walletRepo := postgres.NewPostgresWalletRepo(db.DB, log)
	transactionRepo := postgres.NewPostgresTransactionRepo(db.DB, log)
	remittanceRepo := postgres.NewPostgresRemittanceRepo(db.DB, log)
	scheduleRepo := postgres.NewPostgresScheduleRepo(db.DB, log)

	walletUsecase := usecase.NewWalletUsecase(walletRepo, network, crypt, log)
	transferUsecase := usecase.NewTransferUsecase(walletRepo, transactionRepo, network, crypt, publisher, cfg.Stellar.NativeReserve, log)
	remittanceUsecase := usecase.NewRemittanceUsecase(remittanceRepo, cfg.Remittance.FeePercent, log)
	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, log)

	cascade := reconciler.NewCascader(remittanceRepo, notifier, log)
	rec := reconciler.New(transactionRepo, network, publisher, cascade, cfg.Queue.MaxAttempts, log)

	consumer, err := rabbitmq.NewConsumer(consChan, cfg.Queue.Exchange, cfg.Queue.QueueName, cfg.Queue.ReconcileKey, rec, log)
	if err != nil {
		return nil, err
	}
	swp := sweeper.New(scheduleRepo, transactionRepo, cascade, publisher, cfg.Sweeper.Interval, cfg.Sweeper.StaleAge, log)

	server := &Server{
		router:            mux.NewRouter(),
		log:               log,
		db:                db,
		amqpConn:          amqpConn,
		pubChan:           pubChan,
		consChan:          consChan,
		consumer:          consumer,
		sweeper:           swp,
		walletHandler:     handler.NewWalletHandler(walletUsecase, log),
		transferHandler:   handler.NewTransferHandler(transferUsecase, log),
		remittanceHandler: handler.NewRemittanceHandler(remittanceUsecase, log),
		scheduleHandler:   handler.NewScheduleHandler(scheduleUsecase, swp, log),
	}

	server.router.Use(loggingMiddleware(server.log))

	mw := middleware.New(middleware.Config{
		Recorder: prometheus.NewRecorder(prometheus.Config{}),
	})

	server.router.Use(func(next http.Handler) http.Handler {
		return std.Handler("", mw, next)
	})

	server.RegisterRoutes()

	return server, nil
}

func (s *Server) RegisterRoutes() {
	s.router.Use(
		middlWre.WithErrorHandler(s.log),
		middlWre.Recovery(s.log),
	)
	s.walletHandler.RegisterRoutes(s.router)
	s.transferHandler.RegisterRoutes(s.router)
	s.remittanceHandler.RegisterRoutes(s.router)
	s.scheduleHandler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

// StartBackground launches the reconcile consumer and the sweeper. They stop
// when Shutdown runs.
func (s *Server) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelBackground = cancel

	go func() {
		if err := s.consumer.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("reconcile consumer exited", logger.ErrorField("error", err))
		}
	}()
	go s.sweeper.Run(ctx)
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	s.httpServer = srv

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	if s.cancelBackground != nil {
		s.cancelBackground()
	}

	go func() {
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		if s.amqpConn != nil {
			if err := s.amqpConn.Close(); err != nil {
				s.log.Error("failed to close broker connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("broker shutdown error: %w", err)
			}
		}

		if s.db != nil {
			if err := s.db.Close(); err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}

		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("HTTP request",
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.StringField("remote_addr", r.RemoteAddr),
				logger.StringField("user_agent", r.UserAgent()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
