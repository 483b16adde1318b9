package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"chatgraph-backend/internal/blob"
	"chatgraph-backend/internal/database"
	"chatgraph-backend/internal/handlers"
	"chatgraph-backend/internal/hub"
	"chatgraph-backend/internal/identity"
	"chatgraph-backend/internal/jwt"
	"chatgraph-backend/internal/keyValue"
	"chatgraph-backend/internal/media"
	"chatgraph-backend/internal/memberships"
	"chatgraph-backend/internal/messaging"
	"chatgraph-backend/internal/models"
	"chatgraph-backend/internal/notify"
	"chatgraph-backend/internal/privacy"
	"chatgraph-backend/internal/relationships"
	"chatgraph-backend/internal/snowflake"
	"chatgraph-backend/internal/threads"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupLogger(cfg *models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()

	if cfg.LogToFile {
		config.OutputPaths = []string{"app.log", "stdout"}
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err == nil {
		config.Level = level
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(&cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer sugar.Sync()

	fmt.Println("Looking for ffmpeg...")
	_, err = exec.LookPath("ffmpeg")
	if err != nil {
		sugar.Fatal(err)
	}

	fmt.Println("Connecting to database...")
	db, err := database.Setup(&cfg)
	if err != nil {
		sugar.Fatal(err)
	}

	var redisClient *redis.Client
	if !cfg.SelfContained {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(&cfg)
		if err != nil {
			sugar.Fatal(err)
		}
	}

	gen, err := snowflake.New(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}

	kv := keyValue.New(sugar, redisClient, cfg.SelfContained)
	h := hub.New(sugar, redisClient, cfg.SelfContained)

	timeout := 10 * time.Second
	if cfg.OperationTimeoutSecs > 0 {
		timeout = time.Duration(cfg.OperationTimeoutSecs) * time.Second
	}

	users := identity.NewSQLStore(db, kv, sugar)
	rel := relationships.NewLedger(db, h, gen, sugar, timeout)
	members := memberships.NewLedger(db, h, gen, sugar, timeout)
	evaluator := privacy.Evaluator{BlockOverridesRequest: cfg.BlockOverridesRequest}
	threadSvc := threads.NewService(db, h, gen, rel, evaluator, sugar, timeout)
	fanout := notify.New(db, h, gen, sugar, timeout)
	messages := messaging.NewService(db, h, gen, members, threadSvc, fanout, sugar, timeout)
	mediaTokens := media.NewTokenIssuer(cfg.LiveKitApiKey, cfg.LiveKitApiSecret)
	blobs := blob.NewStore("./public", sugar)

	isHttps := cfg.TlsCert != "" && cfg.TlsKey != ""

	api := handlers.New(handlers.Deps{
		Sugar:    sugar,
		DB:       db,
		Cfg:      &cfg,
		KV:       kv,
		Hub:      h,
		Gen:      gen,
		JWT:      jwt.NewIssuer(cfg.JwtSecret, isHttps),
		Users:    users,
		Rel:      rel,
		Members:  members,
		Threads:  threadSvc,
		Messages: messages,
		FanOut:   fanout,
		Media:    mediaTokens,
		Blobs:    blobs,
	})

	var httpProtocol string
	if isHttps {
		httpProtocol = "https"
	} else {
		httpProtocol = "http"
	}

	fmt.Printf("Server is running on %s://%s:%s\n", httpProtocol, cfg.Address, cfg.Port)

	err = api.Serve(isHttps)
	if err != nil {
		sugar.Fatal(err)
	}
}
