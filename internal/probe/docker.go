// docker.go implements the docker:// dependency kind: readiness of a
// sibling container, verified through the Docker Engine API. This is useful
// in compose setups that mount the Docker socket into the boot container
// and want to gate on a service's own HEALTHCHECK instead of a port probe.
package probe

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/docker/docker/client"

	"github.com/sergehoo/lynerp/internal/model"
)

// dockerCheckTimeout bounds one inspect attempt.
const dockerCheckTimeout = 5 * time.Second

// DockerChecker verifies that a named container is running and, when it
// defines a HEALTHCHECK, reports healthy.
type DockerChecker struct {
	name      string
	container string

	// The API client is created lazily on the first Check so that parsing
	// a boot file with docker targets does not require a reachable socket.
	once    sync.Once
	cli     *client.Client
	initErr error
}

// newDockerChecker builds a DockerChecker for a container name or ID.
func newDockerChecker(name, container string) *DockerChecker {
	return &DockerChecker{
		name:      defaultName(name, container),
		container: container,
	}
}

// Name returns the display name.
func (c *DockerChecker) Name() string { return c.name }

// Kind returns KindDocker.
func (c *DockerChecker) Kind() model.DependencyKind { return model.KindDocker }

// Target returns the container reference.
func (c *DockerChecker) Target() string { return "docker://" + c.container }

// Check inspects the container. Not running is not ready; running with a
// failing or still-starting HEALTHCHECK is not ready either.
func (c *DockerChecker) Check(ctx context.Context) error {
	c.once.Do(func() {
		c.cli, c.initErr = newDockerClient()
	})
	if c.initErr != nil {
		return c.initErr
	}

	checkCtx, cancel := context.WithTimeout(ctx, dockerCheckTimeout)
	defer cancel()

	info, err := c.cli.ContainerInspect(checkCtx, c.container)
	if err != nil {
		return err
	}
	if info.State == nil || !info.State.Running {
		return fmt.Errorf("container %q is not running", c.container)
	}
	if info.State.Health != nil && info.State.Health.Status != "healthy" {
		return fmt.Errorf("container %q health is %q", c.container, info.State.Health.Status)
	}
	return nil
}

// Close releases the underlying API client, if one was created.
func (c *DockerChecker) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// newDockerClient connects to the Docker daemon. DOCKER_HOST is respected
// as-is; otherwise the well-known Unix socket paths are probed. API version
// negotiation keeps the client compatible with whatever daemon version the
// host runs.
func newDockerClient() (*client.Client, error) {
	if os.Getenv("DOCKER_HOST") != "" {
		return client.NewClientWithOpts(
			client.FromEnv,
			client.WithAPIVersionNegotiation(),
		)
	}

	for _, path := range dockerSocketPaths() {
		if _, err := os.Stat(path); err == nil {
			return client.NewClientWithOpts(
				client.WithHost("unix://"+path),
				client.WithAPIVersionNegotiation(),
			)
		}
	}
	return nil, fmt.Errorf("docker socket not found (set DOCKER_HOST or mount /var/run/docker.sock)")
}

// dockerSocketPaths lists the probed socket locations, most common first.
func dockerSocketPaths() []string {
	paths := []string{"/var/run/docker.sock"}
	if home, err := os.UserHomeDir(); err == nil {
		// Rootless Docker and Docker Desktop place the socket under $HOME.
		paths = append(paths, home+"/.docker/run/docker.sock")
	}
	return paths
}
