package main

import (
	"testing"

	"github.com/hashicorp/consul/api"
)

func entry(addr string, port int, tags ...string) *api.ServiceEntry {
	return &api.ServiceEntry{
		Node:    &api.Node{Address: "10.0.0.1"},
		Service: &api.AgentService{Address: addr, Port: port, Tags: tags},
	}
}

// 调度服务的 grpc/http 实例同名注册，选址必须跳过 grpc 实例。
func TestSelectBackendSkipsGRPCInstances(t *testing.T) {
	entries := []*api.ServiceEntry{
		entry("10.0.0.2", 50051, "grpc"),
		entry("10.0.0.2", 8081, "http"),
	}
	for n := uint64(1); n <= 10; n++ {
		u, err := selectBackend("dispatch-service", entries, n)
		if err != nil {
			t.Fatalf("selectBackend n=%d: %v", n, err)
		}
		if u.Host != "10.0.0.2:8081" {
			t.Fatalf("n=%d: expected http instance 10.0.0.2:8081, got %s", n, u.Host)
		}
	}
}

func TestSelectBackendRoundRobin(t *testing.T) {
	entries := []*api.ServiceEntry{
		entry("10.0.0.2", 8081, "http"),
		entry("10.0.0.3", 50051, "grpc"),
		entry("10.0.0.3", 8081, "http"),
	}
	want := []string{"10.0.0.2:8081", "10.0.0.3:8081", "10.0.0.2:8081", "10.0.0.3:8081"}
	for i, n := range []uint64{1, 2, 3, 4} {
		u, err := selectBackend("dispatch-service", entries, n)
		if err != nil {
			t.Fatalf("selectBackend n=%d: %v", n, err)
		}
		if u.Host != want[i] {
			t.Fatalf("n=%d: expected %s, got %s", n, want[i], u.Host)
		}
	}
}

func TestSelectBackendNoHTTPInstance(t *testing.T) {
	entries := []*api.ServiceEntry{
		entry("10.0.0.2", 50051, "grpc"),
	}
	if _, err := selectBackend("dispatch-service", entries, 1); err == nil {
		t.Fatalf("expected error when only grpc instances are healthy")
	}
	if _, err := selectBackend("dispatch-service", nil, 1); err == nil {
		t.Fatalf("expected error for empty entries")
	}
}

// 实例未填 Service.Address 时回退到节点地址。
func TestSelectBackendNodeAddressFallback(t *testing.T) {
	entries := []*api.ServiceEntry{
		entry("", 8081, "http"),
	}
	u, err := selectBackend("dispatch-service", entries, 1)
	if err != nil {
		t.Fatalf("selectBackend: %v", err)
	}
	if u.Host != "10.0.0.1:8081" {
		t.Fatalf("expected node address fallback, got %s", u.Host)
	}
}
