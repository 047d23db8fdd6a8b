package daemon

import (
	"context"
	"os"
	"os/exec"

	"jukebox/internal/api"
	"jukebox/internal/controller"
)

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockPath     string
	SocketPath   string
	Controller   controller.Snapshot
	ActiveJobs   int
	Tracks       int
	Samples      int
	Dependencies []api.DependencyStatus
}

// Status returns the current daemon status snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		Controller:   d.ctrl.Status(),
		ActiveJobs:   d.orch.ActiveCount(),
		Dependencies: d.checkDependencies(),
	}
	if tracks, err := d.store.ListTracks(ctx); err == nil {
		status.Tracks = len(tracks)
	}
	if samples, err := d.store.ListAllSamples(ctx); err == nil {
		status.Samples = len(samples)
	}
	return status
}

type dependency struct {
	name     string
	command  string
	optional bool
}

func (d *Daemon) checkDependencies() []api.DependencyStatus {
	deps := []dependency{
		{name: "playback", command: d.cfg.FFplayBinary()},
		{name: "transcode", command: d.cfg.FFmpegBinary()},
		{name: "probe", command: d.cfg.FFprobeBinary()},
		{name: "silence trim", command: d.cfg.SoxBinary(), optional: true},
		{name: "youtube fetch", command: d.cfg.YtdlpBinary(), optional: true},
		{name: "spotify fetch", command: d.cfg.SpotdlBinary(), optional: true},
		{name: "tempo analysis", command: d.cfg.BpmTagBinary(), optional: true},
	}
	if d.cfg.RemoteConfigured() {
		deps = append(deps,
			dependency{name: "remote shell", command: d.cfg.SSHBinary()},
			dependency{name: "remote copy", command: d.cfg.SCPBinary()},
		)
	}

	out := make([]api.DependencyStatus, 0, len(deps))
	for _, dep := range deps {
		status := api.DependencyStatus{
			Name:     dep.name,
			Command:  dep.command,
			Optional: dep.optional,
		}
		if path, err := exec.LookPath(dep.command); err != nil {
			status.Detail = err.Error()
		} else {
			status.Available = true
			status.Detail = path
		}
		out = append(out, status)
	}
	return out
}
