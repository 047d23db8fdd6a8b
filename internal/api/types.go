package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Track describes a track slot in a transport-friendly format.
type Track struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	AudioPath string `json:"audioPath"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Sample describes a soundboard slot in a transport-friendly format.
type Sample struct {
	Bank      int    `json:"bank"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	AudioPath string `json:"audioPath"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ImportJob describes an import job for status queries.
type ImportJob struct {
	ID            string `json:"id"`
	Target        string `json:"target"`
	DisplayName   string `json:"displayName,omitempty"`
	Status        string `json:"status"`
	Failure       string `json:"failure,omitempty"`
	Error         string `json:"error,omitempty"`
	InstalledPath string `json:"installedPath,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	FinishedAt    string `json:"finishedAt,omitempty"`
}

// ControllerStatus summarizes the control loop state.
type ControllerStatus struct {
	State   string `json:"state"`
	Buffer  string `json:"buffer,omitempty"`
	Track   int    `json:"track,omitempty"`
	Shuffle bool   `json:"shuffle"`
	Bank    int    `json:"bank"`
}

// DependencyStatus reports availability of an external tool.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// DaemonStatus is the full status payload.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockPath     string             `json:"lockPath"`
	SocketPath   string             `json:"socketPath"`
	Controller   ControllerStatus   `json:"controller"`
	ActiveJobs   int                `json:"activeJobs"`
	Tracks       int                `json:"tracks"`
	Samples      int                `json:"samples"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// TrackListResponse wraps a track listing.
type TrackListResponse struct {
	Tracks []Track `json:"tracks"`
}

// SampleListResponse wraps a sample listing.
type SampleListResponse struct {
	Samples []Sample `json:"samples"`
}

// ImportAccepted is returned when an import job is queued.
type ImportAccepted struct {
	Job ImportJob `json:"job"`
}

// ImportRequest is the JSON body accepted by the import endpoints.
type ImportRequest struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}
