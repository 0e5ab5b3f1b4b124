package domain

import "time"

type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

type ChannelStatus string

const (
	StatusActive   ChannelStatus = "active"
	StatusPaused   ChannelStatus = "paused"
	StatusDisabled ChannelStatus = "disabled"
)

// Channel is a content-producing account with its own cadence and budget.
// Config fields are written by admin actions; cursor fields (last produced,
// costs, count) are written only by the production loop.
type Channel struct {
	ID       string   `db:"id"`
	OwnerID  string   `db:"owner_id"`
	Username string   `db:"username"`
	Platform Platform `db:"platform"`

	TemplateID    string        `db:"template_id"`
	VideosPerDay  float64       `db:"videos_per_day"`
	DailyCapCents int64         `db:"daily_cap_cents"`
	Status        ChannelStatus `db:"status"`

	LastProducedAt    *time.Time `db:"last_produced_at"`
	CostDay           time.Time  `db:"cost_day"` // UTC day TodayCostCents belongs to
	TodayCostCents    int64      `db:"today_cost_cents"`
	LifetimeCostCents int64      `db:"lifetime_cost_cents"`
	LifetimeCount     int64      `db:"lifetime_count"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UTCDay truncates a timestamp to its UTC calendar day.
func UTCDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Artifact describes one completed production.
type Artifact struct {
	Reference  string    // vendor URL or id of the finished video
	CostCents  int64     // settled cost, may differ from the pre-call estimate
	ProducedAt time.Time
}

// Lease is a time-bounded mutual-exclusion token held for the duration of one
// production. At most one live lease exists per channel; expired leases are
// reclaimable by any later tick.
type Lease struct {
	ChannelID  string    `db:"channel_id"`
	Holder     string    `db:"holder"`
	AcquiredAt time.Time `db:"acquired_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}
