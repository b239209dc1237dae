package video

import "fmt"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// Job is a snapshot of one generation request. A completed job always carries
// VideoURL, a failed one always carries Error.
type Job struct {
	JobID      string `json:"videoId"`
	TemplateID string `json:"templateId,omitempty"`
	Status     Status `json:"status"`
	VideoURL   string `json:"videoUrl,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Advance moves j to the state of next. Transitions only go forward; a
// terminal job never changes again.
func (j *Job) Advance(next *Job) error {
	if j.Status.Terminal() {
		if next.Status == j.Status {
			return nil
		}
		return fmt.Errorf("video job %s: already %s, cannot move to %s", j.JobID, j.Status, next.Status)
	}
	if next.Status.rank() < j.Status.rank() {
		// providers occasionally report a stale state; keep the newer one
		return nil
	}
	j.Status = next.Status
	j.VideoURL = next.VideoURL
	j.Error = next.Error
	return nil
}
