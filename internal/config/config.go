package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8000"`
	Namespace    string `envconfig:"NAMESPACE" default:"default"`
	Backend      string `envconfig:"BACKEND" default:"auto"`
	DockerHost   string `envconfig:"DOCKER_HOST" default:""`
	DataPath     string `envconfig:"DATA_PATH" default:"/app/data"`
	LogPath      string `envconfig:"LOG_PATH" default:""`
	DatabasePath string `envconfig:"DATABASE_PATH" default:""`
	TaskManifest string `envconfig:"TASK_MANIFEST" default:""`
	ExecShell    string `envconfig:"EXEC_SHELL" default:"/bin/sh"`

	// bcrypt hash of the API bearer token; empty disables auth.
	APITokenHash string `envconfig:"API_TOKEN_HASH" default:""`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("PODSTREAM", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
