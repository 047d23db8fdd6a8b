package api

import (
	"time"

	"jukebox/internal/importer"
	"jukebox/internal/slots"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}

// FromTrackSlot converts a repository row into its API shape.
func FromTrackSlot(track *slots.TrackSlot) Track {
	if track == nil {
		return Track{}
	}
	return Track{
		Number:    track.Number,
		Name:      track.Name,
		AudioPath: track.AudioPath,
		UpdatedAt: formatTime(track.UpdatedAt),
	}
}

// FromSampleSlot converts a repository row into its API shape.
func FromSampleSlot(sample *slots.SampleSlot) Sample {
	if sample == nil {
		return Sample{}
	}
	return Sample{
		Bank:      sample.Bank,
		Key:       sample.Key,
		Name:      sample.Name,
		AudioPath: sample.AudioPath,
		UpdatedAt: formatTime(sample.UpdatedAt),
	}
}

// FromImportJob converts an importer job into its API shape.
func FromImportJob(job importer.Job) ImportJob {
	return ImportJob{
		ID:            job.ID.String(),
		Target:        job.Target.String(),
		DisplayName:   job.DisplayName,
		Status:        string(job.Status),
		Failure:       string(job.Failure),
		Error:         job.Error,
		InstalledPath: job.InstalledPath,
		CreatedAt:     formatTime(job.CreatedAt),
		FinishedAt:    formatTime(job.FinishedAt),
	}
}
