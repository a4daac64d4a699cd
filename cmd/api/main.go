// Package main (in api-subfolder) provides launch of the image intake API
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/UnendingLoop/PostImageIntake/internal/facedetect"
	"github.com/UnendingLoop/PostImageIntake/internal/kafka"
	"github.com/UnendingLoop/PostImageIntake/internal/mwlogger"
	"github.com/UnendingLoop/PostImageIntake/internal/repository"
	"github.com/UnendingLoop/PostImageIntake/internal/service"
	"github.com/UnendingLoop/PostImageIntake/internal/storage"
	"github.com/UnendingLoop/PostImageIntake/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Printf("No .env loaded (%v), using process environment only", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(stringOr(appConfig, "LOG_LEVEL", "info")); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// накатываем миграцию
	repository.MigrateWithRetries(dbConn.Master, stringOr(appConfig, "MIGRATIONS_PATH", "./migrations"), 10, 15*time.Second)

	// подключиться к хранилищу
	strg := storage.NewImgStorage(appConfig, 10*time.Second)
	// создаем экземпляр репо
	repo := repository.NewPostgresImageRepo(dbConn)

	// детектор лиц и пул анализа
	params := facedetect.DefaultParams
	params.MaxSide = intOr(appConfig, "DETECT_MAX_SIDE", params.MaxSide)
	detector, err := facedetect.LoadPigoDetector(stringOr(appConfig, "FACE_CASCADE_PATH", "./cascade/facefinder"), params)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to load face detector")
	}
	analyzer := service.NewAnalyzer(detector,
		intOr(appConfig, "ANALYSIS_WORKERS", runtime.NumCPU()),
		durationOr(appConfig, "ANALYSIS_TIMEOUT", 10*time.Second))

	// события о загрузках - только если задан брокер
	pub, closePub := connectPublisher(ctx, appConfig)

	// создаем экземпляр сервиса
	var svc ImageAPIService = service.NewImageService(repo, pub, strg, analyzer)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewImageHandler(svc)
	// сетапим сервер
	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/post/upload/image", handlers.Upload)      // загрузка с проверками
	engine.GET("/post/images", handlers.GetAllImages)       // получение списка картинок с пагинацией и сортировкой
	engine.GET("/post/images/:id", handlers.GetImage)       // метаданные
	engine.GET("/post/images/:id/file", handlers.LoadFile) // сам файл

	srv := &http.Server{
		Addr:              ":" + stringOr(appConfig, "APP_PORT", "8080"),
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Str("addr", srv.Addr).Msg("Server running")
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	shutdown(srv, closePub, dbConn)
	zlog.Logger.Info().Msg("Exiting app...")
}

// connectPublisher returns a kafka producer or a no-op one when KAFKA_BROKER is empty
func connectPublisher(ctx context.Context, cfg *config.Config) (service.EventPublisher, func() error) {
	broker := cfg.GetString("KAFKA_BROKER")
	if broker == "" {
		zlog.Logger.Info().Msg("KAFKA_BROKER is not set, upload events are disabled")
		return NoopPublisher{}, func() error { return nil }
	}
	topic := stringOr(cfg, "KAFKA_TOPIC", "image-uploaded")

	// ждем пока кафка раздуплится
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := kafka.WaitKafkaReady(waitCtx, broker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unreachable")
	}
	if err := kafka.InitKafkaTopics(waitCtx, broker, 5*time.Second, topic); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to create kafka topics")
	}

	pub := wbfkafka.NewProducer([]string{broker}, topic)
	return pub, pub.Close
}

func shutdown(srv *http.Server, closePub func() error, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to stop HTTP-server correctly")
	}

	// Closing Kafka connection:
	if err := closePub(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-producer")
	}

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
