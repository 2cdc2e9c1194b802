/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、队列装配、配置加载等初始化工作
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；传输队列注册即暂停，须显式启动
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, github.com/go-redis/redis/v8
 * @refs service/basicdata, service/plsql, service/database
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"esb-bridge-service/service/basicdata"
	"esb-bridge-service/service/cleanup"
	"esb-bridge-service/service/database"
	"esb-bridge-service/service/esb"
	"esb-bridge-service/service/events"
	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/metadata"
	"esb-bridge-service/service/notify"
	"esb-bridge-service/service/plsql"
	"esb-bridge-service/service/repository"
	"esb-bridge-service/service/taskqueue"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalConnectionManager  *database.ConnectionManager
	GlobalRedisClient        *redis.Client
	GlobalProfileService     *basicdata.ProfileService
	GlobalInterfaceService   *basicdata.InterfaceService
	GlobalGateway            *plsql.Gateway
	GlobalPlsqlManageService *plsql.ManageService
	GlobalRetentionService   *cleanup.RetentionService

	globalEsbClient    *esb.Client
	globalPublisher    *events.Publisher
	globalNotifier     *notify.MQTTNotifier
	globalRegistWorker *taskqueue.Worker
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化服务元数据库与遗留ERP连接池
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	log.Println("数据库连接成功")

	// 遗留ERP库连接池，状态视图查询与标记过程都走这里
	GlobalConnectionManager, err = database.NewConnectionManager([]database.PoolConfig{
		{
			Alias:       "erp",
			DSN:         getEnvWithDefault("ERP_DB_DSN", "host=localhost port=5432 user=erp password=erp dbname=erp sslmode=disable"),
			MaxOpen:     getEnvIntWithDefault("ERP_DB_MAX_OPEN", 10),
			MaxIdle:     getEnvIntWithDefault("ERP_DB_MAX_IDLE", 2),
			MaxLifetime: 30 * time.Minute,
		},
	})
	if err != nil {
		log.Fatalf("ERP连接池初始化失败: %v", err)
	}

	GlobalRedisClient, err = taskqueue.NewRedisClient()
	if err != nil {
		log.Fatalf("Redis连接失败: %v", err)
	}
	log.Println("Redis连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntWithDefault 获取整型环境变量，如果不存在或非法则返回默认值
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	ctx := context.Background()

	globalEsbClient = esb.NewClient(
		getEnvWithDefault("ESB_USERNAME", "esbuser"),
		os.Getenv("ESB_PASSWORD"),
		time.Duration(getEnvIntWithDefault("ESB_TIMEOUT_SECONDS", 60))*time.Second,
	)
	globalPublisher = events.NewPublisher()
	globalNotifier = notify.NewMQTTNotifier()

	// 基础数据传输接口：队列注册即暂停，等待管理端显式启动
	GlobalProfileService = basicdata.NewProfileService(DB, getEnvWithDefault("PROFILE_ENV", "PROD"))
	GlobalInterfaceService = basicdata.NewInterfaceService(
		GlobalProfileService, GlobalRedisClient, globalEsbClient, globalPublisher, globalNotifier)

	legacyGBK := getEnvWithDefault("ERP_LEGACY_GBK", "false") == "true"
	converter := repository.NewRowConverter(legacyGBK)
	for _, config := range transportInterfaces() {
		repo := repository.NewRepository(GlobalConnectionManager, "erp", config.Mapper, converter)
		if err := GlobalInterfaceService.Register(ctx, config, repo); err != nil {
			log.Fatalf("传输接口注册失败: %v", err)
		}
	}

	// PL/SQL注册与网关：目录操作走ERP池的原生SQL通道
	catalogMapper := metadata.MustColumnMapper(&metadata.EntityMetadata{TableOrViewName: "DUAL"})
	catalogRepo := repository.NewRepository(GlobalConnectionManager, "erp", catalogMapper, converter)
	catalog := plsql.NewCatalog(catalogRepo)

	registQueue := taskqueue.NewQueue(meta.QueuePlsqlRegist, GlobalRedisClient)
	registWorker := plsql.NewRegistWorker(DB, catalog, registQueue)
	globalRegistWorker = taskqueue.NewWorker(registQueue, registWorker.Handle, 1)
	globalRegistWorker.Start(ctx)

	GlobalPlsqlManageService = plsql.NewManageService(DB, registQueue)
	GlobalGateway = plsql.NewGateway(DB, catalog, globalEsbClient, GlobalRedisClient)

	// 审计日志保留
	GlobalRetentionService = cleanup.NewRetentionService(DB, getEnvIntWithDefault("AUDIT_RETENTION_DAYS", 90))
	if err := GlobalRetentionService.Start(); err != nil {
		log.Printf("审计日志保留服务启动失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// Shutdown 停止后台工作者并释放连接资源，进程退出前调用
func Shutdown() {
	GlobalInterfaceService.Shutdown()
	GlobalGateway.Shutdown()
	globalRegistWorker.Stop()
	GlobalRetentionService.Stop()
	globalNotifier.Close()
	GlobalConnectionManager.Shutdown(3 * time.Second)
}
