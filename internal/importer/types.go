package importer

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrSlotBusy is returned when an import is already running for the target slot.
var ErrSlotBusy = errors.New("importer: an import for this slot is already running")

// TargetKind distinguishes track imports from sample imports.
type TargetKind string

const (
	// TargetTrack installs into a numbered track slot.
	TargetTrack TargetKind = "track"
	// TargetSample installs into a soundboard (bank, key) slot.
	TargetSample TargetKind = "sample"
)

// Target identifies the slot an import installs into.
type Target struct {
	Kind   TargetKind `json:"kind"`
	Number int        `json:"number,omitempty"`
	Bank   int        `json:"bank,omitempty"`
	Key    string     `json:"key,omitempty"`
}

// TrackTarget addresses a track slot.
func TrackTarget(number int) Target {
	return Target{Kind: TargetTrack, Number: number}
}

// SampleTarget addresses a soundboard slot.
func SampleTarget(bank int, key string) Target {
	return Target{Kind: TargetSample, Bank: bank, Key: key}
}

// String renders the target for logs and notifications.
func (t Target) String() string {
	if t.Kind == TargetSample {
		return fmt.Sprintf("sample %d/%s", t.Bank, t.Key)
	}
	return "track " + strconv.Itoa(t.Number)
}

// slotKey is the busy-map identity of the target.
func (t Target) slotKey() string {
	if t.Kind == TargetSample {
		return "sample:" + strconv.Itoa(t.Bank) + ":" + t.Key
	}
	return "track:" + strconv.Itoa(t.Number)
}

// SourceKind distinguishes uploaded files from fetched URLs.
type SourceKind string

const (
	// SourceLocalFile imports a file already on disk.
	SourceLocalFile SourceKind = "file"
	// SourceURL fetches audio from a streaming platform.
	SourceURL SourceKind = "url"
)

// Source describes where the audio comes from. RemoveAfter marks staged
// temp files the pipeline should delete once the job finishes.
type Source struct {
	Kind        SourceKind
	Path        string
	URL         string
	RemoveAfter bool
}

// LocalFileSource wraps an on-disk file owned by the caller.
func LocalFileSource(path string) Source {
	return Source{Kind: SourceLocalFile, Path: path}
}

// UploadedFileSource wraps a staged upload the pipeline cleans up.
func UploadedFileSource(path string) Source {
	return Source{Kind: SourceLocalFile, Path: path, RemoveAfter: true}
}

// URLSource wraps a streaming link.
func URLSource(url string) Source {
	return Source{Kind: SourceURL, URL: url}
}

// Status tracks a job through its lifecycle.
type Status string

const (
	// StatusPending means the job is queued behind the worker pool.
	StatusPending Status = "pending"
	// StatusRunning means the pipeline is executing.
	StatusRunning Status = "running"
	// StatusDone means the slot was installed.
	StatusDone Status = "done"
	// StatusFailed means the pipeline gave up; Failure says where.
	StatusFailed Status = "failed"
)

// FailureKind locates which pipeline stage failed.
type FailureKind string

const (
	// FailureAcquisition covers download, upload, and size-cap failures.
	FailureAcquisition FailureKind = "acquisition"
	// FailureTranscode covers probe, transcode, and trim failures.
	FailureTranscode FailureKind = "transcode"
)

// Job is the externally visible state of one import.
type Job struct {
	ID            uuid.UUID   `json:"id"`
	Target        Target      `json:"target"`
	DisplayName   string      `json:"display_name,omitempty"`
	Status        Status      `json:"status"`
	Failure       FailureKind `json:"failure,omitempty"`
	Error         string      `json:"error,omitempty"`
	InstalledPath string      `json:"installed_path,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	FinishedAt    time.Time   `json:"finished_at,omitzero"`
}

// Finished reports whether the job has reached a terminal status.
func (j Job) Finished() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}
