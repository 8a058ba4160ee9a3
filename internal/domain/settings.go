package domain

// Settings is a singleton row with process-wide knobs.
type Settings struct {
	ID                   int64  `db:"id" json:"id"`
	ChannelForLoggingID  int64  `db:"channel_for_logging_id" json:"channel_for_logging_id"`
	SupportContact       string `db:"support_contact" json:"support_contact"`
	SubscriptionChannel  string `db:"subscription_channel" json:"subscription_channel"`
	MaintenanceMode      bool   `db:"maintenance_mode" json:"maintenance_mode"`
	DefaultLanguage      string `db:"default_language" json:"default_language"`
}
