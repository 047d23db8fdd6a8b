package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"jukebox/internal/logging"
	"jukebox/internal/services/ytdlp"
	"jukebox/internal/slots"
)

// Accepted track sample rates. Anything else is resampled before encoding.
var acceptedSampleRates = map[int]bool{44100: true, 48000: true}

func (o *Orchestrator) runJob(job *Job, source Source) {
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-o.ctx.Done():
		o.fail(job, FailureAcquisition, errors.New("daemon shutting down"))
		return
	}
	o.setStatus(job, StatusRunning)
	if source.RemoveAfter {
		defer os.Remove(source.Path)
	}

	workDir, err := os.MkdirTemp("", "jukebox-import-")
	if err != nil {
		o.fail(job, FailureAcquisition, fmt.Errorf("create work dir: %w", err))
		return
	}
	defer os.RemoveAll(workDir)

	acquired, err := o.acquire(job, source, workDir)
	if err != nil {
		o.fail(job, FailureAcquisition, err)
		return
	}
	if job.Target.Kind == TargetSample {
		if err := o.checkSampleCap(acquired); err != nil {
			o.fail(job, FailureAcquisition, err)
			return
		}
	}

	normalized, err := o.normalize(job, acquired, workDir)
	if err != nil {
		o.fail(job, FailureTranscode, err)
		return
	}

	installed, err := o.install(job, normalized)
	if err != nil {
		o.fail(job, FailureTranscode, err)
		return
	}

	o.mu.Lock()
	job.InstalledPath = installed
	o.mu.Unlock()
	o.setStatus(job, StatusDone)

	o.logger.Info("import completed",
		logging.String(logging.FieldJobID, job.ID.String()),
		logging.String("target", job.Target.String()),
		logging.String("path", installed))
	if err := o.notifier.NotifyImportCompleted(o.ctx, job.Target.String(), o.slotName(job, installed)); err != nil {
		o.logger.Warn("completion notification not delivered", logging.Error(err))
	}
}

func (o *Orchestrator) acquire(job *Job, source Source, workDir string) (string, error) {
	if source.Kind == SourceLocalFile {
		if _, err := os.Stat(source.Path); err != nil {
			return "", fmt.Errorf("uploaded file: %w", err)
		}
		return source.Path, nil
	}

	if o.delegate != nil && o.delegate.Enabled() {
		path, err := o.acquireRemote(job, source.URL, workDir)
		if err == nil {
			return path, nil
		}
		o.logger.Warn("remote acquisition failed, falling back to local fetch",
			logging.String(logging.FieldJobID, job.ID.String()),
			logging.Error(err))
	}

	path, err := o.fetcher.Fetch(o.ctx, source.URL, workDir)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (o *Orchestrator) acquireRemote(job *Job, link, workDir string) (string, error) {
	remoteDir := "/tmp/jukebox-" + job.ID.String()
	remotePath, err := o.delegate.Fetch(o.ctx, link, remoteDir, ytdlp.IsSpotifyURL(link))
	if err != nil {
		return "", err
	}
	if job.Target.Kind == TargetTrack {
		if err := o.delegate.AnalyzeBPM(o.ctx, remotePath); err != nil {
			o.logger.Warn("remote tempo analysis failed",
				logging.String(logging.FieldJobID, job.ID.String()),
				logging.Error(err))
		}
	}
	local := filepath.Join(workDir, filepath.Base(remotePath))
	if err := o.delegate.CopyBack(o.ctx, remotePath, local); err != nil {
		return "", err
	}
	if err := o.delegate.Cleanup(o.ctx, remoteDir); err != nil {
		o.logger.Warn("remote cleanup failed",
			logging.String(logging.FieldJobID, job.ID.String()),
			logging.Error(err))
	}
	return local, nil
}

func (o *Orchestrator) checkSampleCap(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("inspect sample source: %w", err)
	}
	if limit := o.cfg.Import.MaxSampleBytes; limit > 0 && info.Size() > limit {
		return fmt.Errorf("sample source is %d bytes, cap is %d", info.Size(), limit)
	}
	return nil
}

func (o *Orchestrator) slotName(job *Job, installedPath string) string {
	if name := strings.TrimSpace(job.DisplayName); name != "" {
		return slots.SanitizeName(name)
	}
	base := filepath.Base(installedPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (o *Orchestrator) normalize(job *Job, acquired, workDir string) (string, error) {
	name := strings.TrimSpace(job.DisplayName)
	if name == "" {
		base := filepath.Base(acquired)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	name = slots.SanitizeName(name)

	if job.Target.Kind == TargetSample {
		converted := filepath.Join(workDir, "converted.wav")
		if err := o.transcoder.ToWAV(o.ctx, acquired, converted); err != nil {
			return "", err
		}
		trimmed := filepath.Join(workDir, slots.SampleFileName(job.Target.Key, name))
		if err := o.transcoder.TrimSilence(o.ctx, converted, trimmed); err != nil {
			return "", err
		}
		return trimmed, nil
	}

	rate, err := o.transcoder.SampleRate(o.ctx, acquired)
	if err != nil {
		return "", err
	}
	src := acquired
	if !acceptedSampleRates[rate] {
		resampled := filepath.Join(workDir, "resampled"+filepath.Ext(acquired))
		if err := o.transcoder.Resample(o.ctx, acquired, resampled, o.cfg.Import.SampleRate); err != nil {
			return "", err
		}
		src = resampled
	}
	encoded := filepath.Join(workDir, slots.TrackFileName(job.Target.Number, name))
	if err := o.transcoder.ToMP3(o.ctx, src, encoded); err != nil {
		return "", err
	}

	if tempo, err := o.tempo.Analyze(o.ctx, encoded); err != nil {
		o.logger.Debug("tempo analysis skipped",
			logging.String(logging.FieldJobID, job.ID.String()),
			logging.Error(err))
	} else {
		o.logger.Info("tempo detected",
			logging.String(logging.FieldJobID, job.ID.String()),
			logging.String("bpm", strconv.FormatFloat(tempo, 'f', 1, 64)))
	}
	return encoded, nil
}

// install moves the normalized file into the media tree and flips the slot
// row in one write, so readers only ever see the finished asset.
func (o *Orchestrator) install(job *Job, normalized string) (string, error) {
	fileName := filepath.Base(normalized)
	name := strings.TrimSuffix(strings.SplitN(fileName, "_", 2)[1], filepath.Ext(fileName))

	var dest, previous string
	if job.Target.Kind == TargetSample {
		bankDir := filepath.Join(o.cfg.Paths.SamplesDir, strconv.Itoa(job.Target.Bank))
		if err := os.MkdirAll(bankDir, 0o755); err != nil {
			return "", fmt.Errorf("create bank dir: %w", err)
		}
		dest = filepath.Join(bankDir, fileName)
		if prior, err := o.store.GetSample(o.ctx, job.Target.Bank, job.Target.Key); err == nil {
			previous = prior.AudioPath
		}
	} else {
		dest = filepath.Join(o.cfg.Paths.SongsDir, fileName)
		if prior, err := o.store.GetTrack(o.ctx, job.Target.Number); err == nil {
			previous = prior.AudioPath
		}
	}

	if err := checkFreeSpace(normalized, filepath.Dir(dest)); err != nil {
		return "", err
	}
	if err := moveFile(normalized, dest); err != nil {
		return "", err
	}

	if job.Target.Kind == TargetSample {
		if _, err := o.store.PutSample(o.ctx, job.Target.Bank, job.Target.Key, name, dest); err != nil {
			return "", err
		}
	} else {
		if _, err := o.store.PutTrack(o.ctx, job.Target.Number, name, dest); err != nil {
			return "", err
		}
	}

	if previous != "" && previous != dest {
		if err := os.Remove(previous); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.logger.Warn("stale asset not removed",
				logging.String("path", previous),
				logging.Error(err))
		}
	}
	return dest, nil
}

// moveFile renames when possible and copies across filesystems otherwise.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", dest, err)
	}
	return os.Remove(src)
}
