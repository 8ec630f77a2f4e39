package cluster

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dbext/podstream/internal/config"
)

var (
	current Backend
	mu      sync.RWMutex
)

// InitBackend picks and initializes the cluster backend once at startup.
// "auto" tries Kubernetes first and falls back to Docker.
func InitBackend(ctx context.Context) error {
	backend := config.Cfg.Backend

	if backend == "auto" || backend == "kubernetes" {
		k8s := &KubernetesBackend{}
		if err := k8s.Initialize(ctx); err == nil {
			mu.Lock()
			current = k8s
			mu.Unlock()
			log.Println("Cluster backend: kubernetes")
			return nil
		} else {
			log.Printf("Kubernetes backend unavailable: %v", err)
		}
	}

	if backend == "auto" || backend == "docker" {
		docker := &DockerBackend{}
		if err := docker.Initialize(ctx); err == nil {
			mu.Lock()
			current = docker
			mu.Unlock()
			log.Println("Cluster backend: docker")
			return nil
		} else {
			log.Printf("Docker backend unavailable: %v", err)
		}
	}

	return fmt.Errorf("no cluster backend available (tried: %s)", backend)
}

// Get returns the active backend, or nil when none initialized.
func Get() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
