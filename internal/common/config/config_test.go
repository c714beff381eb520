package config

import "testing"

// 文件与 Consul KV 两条加载路径共用同一套 JSON 解析。
func TestParseConfig(t *testing.T) {
	data := []byte(`{
		"server": {"name": "dispatch-service", "host": "0.0.0.0", "grpc_port": 50051, "http_port": 8081},
		"gateway": {"listen": ":8080", "backend_service": "dispatch-service", "max_failures": 5, "reset_seconds": 30},
		"dispatch": {"trip_id_prefix": "TRP", "trip_id_pad": 3}
	}`)

	cfg, err := parseConfig(data)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Server.Name != "dispatch-service" || cfg.Server.HTTPPort != 8081 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Gateway.BackendService != "dispatch-service" || cfg.Gateway.MaxFailures != 5 {
		t.Fatalf("unexpected gateway config: %+v", cfg.Gateway)
	}
	if cfg.Dispatch.TripIDPrefix != "TRP" || cfg.Dispatch.TripIDPad != 3 {
		t.Fatalf("unexpected dispatch config: %+v", cfg.Dispatch)
	}
}

func TestParseConfigRejectsBadJSON(t *testing.T) {
	if _, err := parseConfig([]byte("{not json")); err == nil {
		t.Fatalf("expected parse error")
	}
}
