package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/FleetOrbit/FleetOrbit/internal/common/config"
	"github.com/FleetOrbit/FleetOrbit/internal/common/discovery"
	"github.com/FleetOrbit/FleetOrbit/internal/common/logger"
	"github.com/FleetOrbit/FleetOrbit/internal/common/middleware"
	"github.com/hashicorp/consul/api"
)

// API 网关：把外部 HTTP 流量转发到 Consul 中注册的调度服务实例。
// 入口处串联 令牌桶限流 + 熔断器，后端实例轮询选取。

// 调度服务在同一个服务名下注册了 grpc 和 http 两个实例，
// 网关只能把流量路由到 http 实例。
const backendTag = "http"

var (
	configPath      = flag.String("config", "configs/api-gateway.json", "配置文件路径")
	configConsulKey = flag.String("config-consul-key", "", "从 Consul KV 读取配置的 key（设置后优先于 -config）")
	consulKVHost    = flag.String("consul-host", "localhost", "读取 KV 配置时的 Consul 地址")
	consulKVPort    = flag.Int("consul-port", 8500, "读取 KV 配置时的 Consul 端口")
)

type gateway struct {
	consul  *api.Client
	service string
	limiter middleware.RateLimiter
	breaker *middleware.CircuitBreaker
	log     logger.Logger
	rr      uint64
}

// pickBackend 轮询选取一个健康的 http 后端实例。
func (g *gateway) pickBackend() (*url.URL, error) {
	entries, _, err := g.consul.Health().Service(g.service, backendTag, true, nil)
	if err != nil {
		return nil, fmt.Errorf("consul lookup failed: %w", err)
	}
	return selectBackend(g.service, entries, atomic.AddUint64(&g.rr, 1))
}

// selectBackend 在带 http 标签的实例中按序号轮询选址。
// 标签在这里再过滤一次：选址逻辑不依赖查询端是否带了 tag 条件。
func selectBackend(service string, entries []*api.ServiceEntry, n uint64) (*url.URL, error) {
	httpOnly := make([]*api.ServiceEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil && e.Service != nil && hasTag(e.Service.Tags, backendTag) {
			httpOnly = append(httpOnly, e)
		}
	}
	if len(httpOnly) == 0 {
		return nil, fmt.Errorf("no healthy %s instance of %s", backendTag, service)
	}
	e := httpOnly[int((n-1)%uint64(len(httpOnly)))]
	addr := e.Service.Address
	if addr == "" && e.Node != nil {
		addr = e.Node.Address
	}
	return &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", addr, e.Service.Port)}, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.limiter != nil && !g.limiter.Allow(r.Context()) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	responded := false
	err := g.breaker.Call(r.Context(), func() error {
		target, err := g.pickBackend()
		if err != nil {
			return err
		}

		var proxyErr error
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			proxyErr = err
			responded = true
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream error"))
		}
		proxy.ServeHTTP(w, r)
		if proxyErr == nil {
			responded = true
		}
		return proxyErr
	})
	if err == nil {
		return
	}

	g.log.Warnf("proxy %s %s failed: %v", r.Method, r.URL.Path, err)
	if responded {
		return
	}
	if errors.Is(err, middleware.ErrCircuitOpen) {
		http.Error(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

func main() {
	flag.Parse()

	// 加载配置：优先 Consul KV，否则本地 JSON 文件
	var cfg *config.Config
	var err error
	if *configConsulKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulKVHost, *consulKVPort, *configConsulKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Fatalf("failed to connect to Consul: %v", err)
	}

	var limiter middleware.RateLimiter
	if cfg.Server.RateLimitCapacity > 0 && cfg.Server.RateLimitPerSec > 0 {
		limiter = middleware.NewTokenBucket(cfg.Server.RateLimitCapacity, cfg.Server.RateLimitPerSec)
	}

	gw := &gateway{
		consul:  consulClient,
		service: cfg.Gateway.BackendService,
		limiter: limiter,
		breaker: middleware.NewCircuitBreaker(
			"gateway",
			cfg.Gateway.MaxFailures,
			time.Duration(cfg.Gateway.ResetSeconds)*time.Second,
		),
		log: log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", gw)

	srv := &http.Server{
		Addr:              cfg.Gateway.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Infof("api-gateway listening on %s, backend=%s", cfg.Gateway.Listen, cfg.Gateway.BackendService)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("gateway exited: %v", err)
	}
}
