package ipc

import "jukebox/internal/api"

// StatusRequest asks for the daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon status.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// TrackListRequest asks for every occupied track slot.
type TrackListRequest struct{}

// TrackListResponse carries the track listing.
type TrackListResponse struct {
	Tracks []api.Track `json:"tracks"`
}

// SampleListRequest asks for sample slots; Bank < 0 means all banks.
type SampleListRequest struct {
	Bank int `json:"bank"`
}

// SampleListResponse carries the sample listing.
type SampleListResponse struct {
	Samples []api.Sample `json:"samples"`
}

// ImportRequest queues an import job. Exactly one of FilePath and URL must
// be set. Track imports use Number; sample imports set Sample plus Bank/Key.
type ImportRequest struct {
	Sample   bool   `json:"sample"`
	Number   int    `json:"number"`
	Bank     int    `json:"bank"`
	Key      string `json:"key"`
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
	Name     string `json:"name"`
}

// ImportResponse carries the queued job.
type ImportResponse struct {
	Job api.ImportJob `json:"job"`
}

// JobRequest asks for one import job by id.
type JobRequest struct {
	ID string `json:"id"`
}

// JobResponse carries the job snapshot.
type JobResponse struct {
	Job api.ImportJob `json:"job"`
}

// JobListRequest asks for all retained import jobs.
type JobListRequest struct{}

// JobListResponse carries the retained jobs, newest first.
type JobListResponse struct {
	Jobs []api.ImportJob `json:"jobs"`
}

// DeleteRequest clears a slot. Track deletes use Number; sample deletes set
// Sample plus Bank/Key.
type DeleteRequest struct {
	Sample bool   `json:"sample"`
	Number int    `json:"number"`
	Bank   int    `json:"bank"`
	Key    string `json:"key"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// PlayRequest starts playback of a track.
type PlayRequest struct {
	Number int `json:"number"`
}

// PlayResponse acknowledges a playback start.
type PlayResponse struct {
	Playing bool `json:"playing"`
}

// StopPlaybackRequest aborts the current track.
type StopPlaybackRequest struct{}

// StopPlaybackResponse acknowledges the abort.
type StopPlaybackResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a test push.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
