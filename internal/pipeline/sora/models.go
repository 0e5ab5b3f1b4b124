package sora

// submitRequest is the body of a production job submission.
type submitRequest struct {
	ChannelID  string `json:"channel_id"`
	Platform   string `json:"platform"`
	Username   string `json:"username"`
	TemplateID string `json:"template_id"`
}

// jobResponse is the vendor's view of a production job, returned by both the
// submit call and the status poll.
type jobResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"` // queued, rendering, completed, failed
	VideoURL         string `json:"video_url,omitempty"`
	CostCents        int64  `json:"cost_cents,omitempty"`
	FailedStage      string `json:"failed_stage,omitempty"`
	PartialCostCents int64  `json:"partial_cost_cents,omitempty"`
	Error            string `json:"error,omitempty"`
}

const (
	jobStatusCompleted = "completed"
	jobStatusFailed    = "failed"
)
