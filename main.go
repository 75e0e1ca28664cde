package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haojie06/domoai-http/internal/cache"
	"github.com/haojie06/domoai-http/internal/catalog"
	"github.com/haojie06/domoai-http/internal/domoai"
	"github.com/haojie06/domoai-http/internal/logger"
	"github.com/haojie06/domoai-http/internal/server"
	"github.com/haojie06/domoai-http/internal/server/handler"
	"github.com/spf13/viper"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}
	var botConfig domoai.DomoBotConfig
	if err := viper.UnmarshalKey("domoai", &botConfig); err != nil {
		panic(err)
	}
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("app.cachePrefix", "domoai:")
	host := viper.GetString("server.host")
	port := viper.GetString("server.port")

	taskCache := newCache()
	taskTTL := time.Duration(viper.GetInt("app.taskTTLHours")) * time.Hour
	store := domoai.NewTaskStore(taskCache, taskTTL)

	modelCatalog, err := catalog.Load(viper.GetString("app.modelCatalogDir"))
	if err != nil {
		panic(err)
	}

	callback := domoai.NewEventCallback(viper.GetString("app.eventCallbackUrl"))
	watcher := domoai.NewResultWatcher(store, callback)
	bot, err := domoai.NewDomoBot(botConfig, store, watcher)
	if err != nil {
		panic(err)
	}

	logger.Infof("service is starting, host: %s, port: %s", host, port)
	go server.Start(host, port, viper.GetString("app.apiAuthToken"), handler.New(bot, modelCatalog))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	if err := bot.Close(); err != nil {
		logger.Errorf("failed to close discord session: %s", err)
	}
	if err := taskCache.Close(); err != nil {
		logger.Errorf("failed to close cache: %s", err)
	}
}

func newCache() cache.Cache {
	prefix := viper.GetString("app.cachePrefix")
	if redisURI := viper.GetString("app.redisUri"); redisURI != "" {
		redisCache, err := cache.NewRedisCache(redisURI, prefix)
		if err != nil {
			panic(err)
		}
		logger.Infof("using redis cache backend")
		return redisCache
	}
	logger.Infof("using in-memory cache backend")
	return cache.NewMemoryCache(prefix)
}
