package cluster

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/dbext/podstream/internal/config"
)

// DockerBackend serves local development against a Docker daemon. Containers
// stand in for pods; the namespace parameter is ignored beyond attribution.
type DockerBackend struct {
	client *dockerclient.Client
}

func (d *DockerBackend) Name() string {
	return "docker"
}

func (d *DockerBackend) Initialize(ctx context.Context) error {
	opts := []dockerclient.Opt{
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	}
	if config.Cfg.DockerHost != "" {
		opts = append(opts, dockerclient.WithHost(config.Cfg.DockerHost))
	}

	var err error
	d.client, err = dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	if _, err := d.client.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	return nil
}

func (d *DockerBackend) ResolvePods(ctx context.Context, namespace, prefix string) ([]Pod, error) {
	list, err := d.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	pods := make([]Pod, 0, len(list))
	for _, c := range list {
		if len(c.Names) == 0 {
			continue
		}
		name := strings.TrimPrefix(c.Names[0], "/")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		pods = append(pods, Pod{
			Name:      name,
			Namespace: namespace,
			Ready:     c.State == "running",
		})
	}
	return pods, nil
}

func (d *DockerBackend) OpenLogStream(ctx context.Context, opts LogOptions) (io.ReadCloser, error) {
	tail := "all"
	if opts.TailLines != nil {
		tail = strconv.FormatInt(*opts.TailLines, 10)
	}

	rc, err := d.client.ContainerLogs(ctx, opts.Pod, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       tail,
	})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", opts.Pod, ErrNotFound)
		}
		return nil, fmt.Errorf("container logs: %w", err)
	}

	// The daemon multiplexes stdout/stderr with 8-byte frame headers when the
	// container has no TTY; demultiplex both onto one plain byte stream.
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		rc.Close()
		if err != nil {
			err = fmt.Errorf("demultiplex log stream: %w: %v", ErrMalformedStream, err)
		}
		pw.CloseWithError(err)
	}()
	return pr, nil
}

func (d *DockerBackend) StartExec(ctx context.Context, pod Pod, command []string) (*ExecChannel, error) {
	execID, err := d.client.ContainerExecCreate(ctx, pod.Name, container.ExecOptions{
		Cmd:          command,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", pod.Name, ErrNotFound)
		}
		return nil, fmt.Errorf("exec create: %w", err)
	}

	resp, err := d.client.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("exec attach: %w", err)
	}

	deliveries := make(chan Delivery, 64)
	result := make(chan ExecResult, 1)

	go func() {
		_, err := stdcopy.StdCopy(
			&streamWriter{stream: Stdout, ch: deliveries, ctx: ctx},
			&streamWriter{stream: Stderr, ch: deliveries, ctx: ctx},
			resp.Reader,
		)
		resp.Close()
		close(deliveries)

		code := 0
		if err != nil {
			err = fmt.Errorf("demultiplex exec stream: %w: %v", ErrMalformedStream, err)
		} else if inspect, ierr := d.client.ContainerExecInspect(ctx, execID.ID); ierr != nil {
			err = fmt.Errorf("exec inspect: %w", ierr)
		} else {
			code = inspect.ExitCode
		}
		result <- ExecResult{ExitCode: code, Err: err}
	}()

	return &ExecChannel{Deliveries: deliveries, Result: result}, nil
}
