package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"assessment-service/internal/config"
	"assessment-service/internal/db"
	"assessment-service/internal/event"
	"assessment-service/internal/handlers"
	"assessment-service/internal/repository"
	"assessment-service/internal/service"
	"assessment-service/pkg/discovery"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "assessment_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg := config.ServiceConfig

	logFile, err := setupLogging()
	if err != nil {
		log.Printf("Failed to set up file logging, using stderr: %v", err)
	} else {
		defer logFile.Close()
	}

	db.InitMongo(cfg.MongoDB.URI)
	defer db.DisconnectMongo()
	database := db.Client.Database(cfg.MongoDB.Database)

	db.InitRedis(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer db.CloseRedis()

	var publisher *event.EventPublisher
	if cfg.RabbitMQ.URI != "" && cfg.RabbitMQ.Exchange != "" {
		publisher, err = event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, assessment events will not be published")
	}

	sessionRepo := repository.NewSessionRepository(database)
	answerRepo := repository.NewAnswerRepository(database)
	questionRepo := repository.NewQuestionRepository(database)
	certificateRepo := repository.NewCertificateRepository(database)

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), cfg.MongoDB.Timeout)
	defer cancelIndexes()
	for name, create := range map[string]func(context.Context) error{
		"sessions":     sessionRepo.CreateIndexes,
		"answers":      answerRepo.CreateIndexes,
		"questions":    questionRepo.CreateIndexes,
		"certificates": certificateRepo.CreateIndexes,
	} {
		if err := create(indexCtx); err != nil {
			log.Fatalf("Failed to create %s indexes: %v", name, err)
		}
	}

	// The publisher interface is nil when RabbitMQ is not configured; a
	// typed nil *EventPublisher would defeat the services' nil checks.
	var pub event.Publisher
	if publisher != nil {
		pub = publisher
	}

	assessmentService := service.NewAssessmentService(sessionRepo, answerRepo, questionRepo, pub)
	questionService := service.NewQuestionService(questionRepo, db.RedisClient, cfg.Redis.QuestionCacheTTL)
	certificateService := service.NewCertificateService(sessionRepo, certificateRepo, pub, cfg.Assessment.CompetencyCount)

	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/public/assessment/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.Server.ServiceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := r.Group("/protected/assessment")
	{
		protected.POST("/start", assessmentHandler.StartAssessment)
		protected.GET("/session", assessmentHandler.GetSession)
		protected.GET("/questions/:step", questionHandler.GetQuestionsForStep)
		protected.POST("/answer", assessmentHandler.SubmitAnswer)
		protected.POST("/complete-step", assessmentHandler.CompleteStep)
		protected.POST("/certificate", certificateHandler.GenerateCertificate)
	}

	registry, err := discovery.NewServiceRegistry(cfg)
	if err != nil {
		log.Printf("Service discovery unavailable: %v", err)
	} else if err := registry.Register(); err != nil {
		log.Printf("Failed to register with Consul: %v", err)
		registry = nil
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan
	log.Println("Shutting down server...")

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Printf("Failed to deregister from Consul: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	log.Println("Server exited, goodbye!")
}
