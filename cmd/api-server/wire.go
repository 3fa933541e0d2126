//go:build wireinject
// +build wireinject

package main

import (
	"Anju/config"
	"Anju/dao"
	"Anju/dao/cache"
	"Anju/handler"
	"Anju/internal/module/announcement"
	"Anju/pkg/client"
	"Anju/pkg/database"
	ossclient "Anju/pkg/oss"
	"Anju/pkg/rocketmq"
	"Anju/pkg/server"
	"Anju/service"

	"github.com/google/wire"
)

func InitServer(cfg *config.Config) *server.AppProvider {
	wire.Build(

		client.NewRedisClient,
		config.ProvideOssConfig,
		config.ProvideRocketMQConfig,
		config.ProvideAllocationConfig,
		rocketmq.InitProducer,
		ossclient.GetOssClient,
		server.NewGinEngine,
		cache.ProviderSet,

		wire.Struct(new(handler.Auth), "*"),
		wire.Struct(new(handler.Allocation), "*"),
		wire.Struct(new(handler.Rule), "*"),
		wire.Struct(new(handler.Lead), "*"),
		wire.Struct(new(handler.Point), "*"),
		wire.Struct(new(handler.FollowUp), "*"),

		wire.Struct(new(server.AppProvider), "*"),
		wire.Struct(new(server.Handlers), "*"),

		dao.ProviderSet,
		service.ProviderSet,
		announcement.ProviderSet,
		database.NewDB,
	)
	return nil
}
