package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mediachat/internal/api"
	"mediachat/internal/config"
	"mediachat/internal/gemini"
	"mediachat/internal/models"
	"mediachat/internal/service/chat"
	"mediachat/internal/staging"
)

const defaultModel = "gemini-1.5-flash"

func main() {
	// .env is optional; the environment itself may already carry the key.
	_ = godotenv.Load()

	cfgPath := os.Getenv("MEDIACHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	apiKey, err := config.APIKey()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	modelName := cfg.Model.Name
	if modelName == "" {
		modelName = defaultModel
	}
	client, err := gemini.NewClient(context.Background(), apiKey, modelName)
	if err != nil {
		log.Fatalf("init gemini client: %v", err)
	}

	stagedTTL := time.Duration(cfg.BasicConfig.StagedFileTTL) * time.Minute
	store, err := staging.NewStore(cfg.BasicConfig.StagingDir, stagedTTL)
	if err != nil {
		log.Fatalf("init staging store: %v", err)
	}
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	store.StartSweeper(sweepCtx, time.Duration(cfg.BasicConfig.StagedCleanInterval)*time.Minute)

	defaults := models.DefaultGenerationParams()
	if cfg.Model.Temperature != 0 {
		defaults.Temperature = cfg.Model.Temperature
	}
	if cfg.Model.TopP != 0 {
		defaults.TopP = cfg.Model.TopP
	}
	if cfg.Model.MaxOutputTokens != 0 {
		defaults.MaxOutputTokens = cfg.Model.MaxOutputTokens
	}

	policies := make(map[models.Slot]models.ReleasePolicy)
	for slotID, slotCfg := range cfg.Slots {
		slot, err := models.ParseSlot(slotID)
		if err != nil {
			log.Fatalf("config slots: %v", err)
		}
		if slotCfg.ReleasePolicy != "" {
			policies[slot] = models.ReleasePolicy(slotCfg.ReleasePolicy)
		}
	}

	service := chat.NewService(chat.NewRemote(client), store, chat.Options{
		PollInterval:    time.Duration(cfg.Model.PollIntervalSeconds) * time.Second,
		MaxPollWait:     time.Duration(cfg.Model.MaxPollWaitSeconds) * time.Second,
		DefaultParams:   defaults,
		ReleasePolicies: policies,
	})
	handlers := api.NewHandler(service, defaults, cfg.BasicConfig.MaxUploadMB<<20)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
