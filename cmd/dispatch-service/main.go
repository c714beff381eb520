package main

import (
	"flag"
	"fmt"

	"github.com/FleetOrbit/FleetOrbit/internal/common/config"
	"github.com/FleetOrbit/FleetOrbit/internal/common/db"
	"github.com/FleetOrbit/FleetOrbit/internal/common/logger"
	"github.com/FleetOrbit/FleetOrbit/internal/common/server"
	"github.com/FleetOrbit/FleetOrbit/internal/common/tracing"
	"github.com/FleetOrbit/FleetOrbit/internal/driver"
	"github.com/FleetOrbit/FleetOrbit/internal/fuel"
	"github.com/FleetOrbit/FleetOrbit/internal/maintenance"
	"github.com/FleetOrbit/FleetOrbit/internal/trip"
	"github.com/FleetOrbit/FleetOrbit/internal/vehicle"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

var (
	configPath      = flag.String("config", "configs/dispatch-service.json", "配置文件路径")
	configConsulKey = flag.String("config-consul-key", "", "从 Consul KV 读取配置的 key（设置后优先于 -config）")
	consulHost      = flag.String("consul-host", "localhost", "读取 KV 配置时的 Consul 地址")
	consulPort      = flag.Int("consul-port", 8500, "读取 KV 配置时的 Consul 端口")
)

func main() {
	flag.Parse()

	// 加载配置：优先 Consul KV，否则本地 JSON 文件
	var cfg *config.Config
	var err error
	if *configConsulKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulHost, *consulPort, *configConsulKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}

	// 自动迁移表结构
	if err := gormDB.AutoMigrate(&vehicle.Vehicle{}, &driver.Driver{}, &trip.Trip{}, &fuel.Expense{}); err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}

	// 组装行程存储与各业务模块
	tripStore := trip.NewGormStore(gormDB, cfg.Dispatch.TripIDPrefix, cfg.Dispatch.TripIDPad)
	if err := tripStore.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate trip counter table: %v", err)
	}

	vehicleRepo := vehicle.NewRepo(gormDB)
	driverRepo := driver.NewRepo(gormDB)
	fuelRepo := fuel.NewRepo(gormDB)

	tripService := trip.NewService(tripStore, log)
	maintenanceService := maintenance.NewService(vehicleRepo, log)

	vehicleHandler := vehicle.NewHandler(vehicleRepo, tripStore)
	driverHandler := driver.NewHandler(driverRepo)
	tripHandler := trip.NewHandler(tripService)
	maintenanceHandler := maintenance.NewHandler(maintenanceService)
	fuelHandler := fuel.NewHandler(fuelRepo, vehicleRepo)

	// gRPC 服务（health + reflection，供网关与 Consul 探活）
	// TODO: dispatch.proto 定稿后在这里注册 DispatchService
	go func() {
		if err := server.RunGRPCServer(cfg, log, func(s *grpc.Server) error {
			return nil
		}); err != nil {
			log.Errorf("grpc server exited: %v", err)
		}
	}()

	// HTTP 业务 API
	if err := server.RunHTTPServer(cfg, log, func(r *gin.Engine) error {
		api := r.Group("/api/v1")
		vehicleHandler.Register(api)
		driverHandler.Register(api)
		tripHandler.Register(api)
		maintenanceHandler.Register(api)
		fuelHandler.Register(api)
		return nil
	}); err != nil {
		log.Fatalf("http server exited: %v", err)
	}
}
