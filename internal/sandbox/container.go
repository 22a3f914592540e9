package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// RunOpts describes one sandboxed execution. Containers always run detached
// from the network; inputs are bind-mounted read-only by the caller.
type RunOpts struct {
	Image       string
	Command     []string
	Env         map[string]string
	Mounts      []Mount
	WorkDir     string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64 // bytes
}

type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

type RunResult struct {
	ExitCode int
	TimedOut bool
	OOMKill  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Run executes the command in an isolated container and waits for it to
// finish, enforcing a hard wall-clock timeout. On timeout the container is
// killed and removed; nothing is left running. Stdout and stderr are captured
// separately.
func Run(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	envSlice := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		envSlice = append(envSlice, k+"="+v)
	}

	mounts := make([]mount.Mount, 0, len(opts.Mounts))
	for _, m := range opts.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
		// Untrusted organizer scripts get no network at all.
		NetworkMode: "none",
	}
	if opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(opts.CPULimit * 1e9)
	}
	if opts.MemoryLimit > 0 {
		hostCfg.Memory = opts.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		Env:        envSlice,
		WorkingDir: opts.WorkDir,
		Labels:     map[string]string{"visionbench": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				// Only a fired deadline is a timeout; daemon faults and
				// caller cancellation must not read as "time limit exceeded".
				if timeoutCtx.Err() == context.DeadlineExceeded {
					stdout, stderr := collectLogs(cli, containerID)
					return &RunResult{
						ExitCode: 124,
						TimedOut: true,
						Stdout:   stdout,
						Stderr:   stderr,
						Duration: time.Since(start),
					}, nil
				}
				return nil, fmt.Errorf("waiting for container: %w", err)
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			stdout, stderr := collectLogs(cli, containerID)
			res := &RunResult{
				ExitCode: int(status.StatusCode),
				Stdout:   stdout,
				Stderr:   stderr,
				Duration: time.Since(start),
			}
			// 137 is SIGKILL; with a memory limit set and no timeout
			// fired, the kernel OOM killer is the usual cause.
			if res.ExitCode == 137 && opts.MemoryLimit > 0 {
				res.OOMKill = true
			}
			return res, nil
		}
	}
}

// collectLogs demuxes the container's output streams.
func collectLogs(cli *client.Client, containerID string) (stdout, stderr string) {
	reader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", ""
	}
	defer reader.Close()

	var outBuf, errBuf bytes.Buffer
	stdcopy.StdCopy(&outBuf, &errBuf, reader)
	return outBuf.String(), errBuf.String()
}
