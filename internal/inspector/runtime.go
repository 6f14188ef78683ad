package inspector

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Container is the subset of a running container the inspector needs.
type Container struct {
	ID     string
	Name   string
	Labels map[string]string
	State  string
}

// Runtime lists running containers.
type Runtime interface {
	RunningContainers(ctx context.Context) ([]Container, error)
}

// DockerRuntime talks to the Docker Engine API.
type DockerRuntime struct {
	cli *client.Client
}

// NewDockerRuntime builds a client from the environment (DOCKER_HOST and
// friends). A non-empty host overrides DOCKER_HOST.
func NewDockerRuntime(host string) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

// RunningContainers returns the containers currently running on the host.
func (d *DockerRuntime) RunningContainers(ctx context.Context) ([]Container, error) {
	list, err := d.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, err
	}

	out := make([]Container, 0, len(list))
	for _, c := range list {
		name := c.ID
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, Container{
			ID:     c.ID,
			Name:   name,
			Labels: c.Labels,
			State:  c.State,
		})
	}
	return out, nil
}

// Ping checks that the daemon answers.
func (d *DockerRuntime) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

// Close releases the underlying HTTP transport.
func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}
