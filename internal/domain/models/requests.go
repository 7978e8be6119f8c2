package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type CollectRequest struct {
	Since          string `query:"since" json:"since" validate:"omitempty,datetime=2006-01-02"`
	Until          string `query:"until" json:"until" validate:"omitempty,datetime=2006-01-02"`
	LimitPerAuthor int    `query:"limit" json:"limitPerAuthor" default:"3" validate:"gte=1,lte=50"`
	AuthorGroup    string `query:"group" json:"authorGroup" default:"core" validate:"oneof=core all movers sentiment chartists"`
}

type SignalsRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}

type CandlesRequest struct {
	TF string `query:"tf" json:"tf" default:"4h" validate:"oneof=1h 4h 1d 1w 1M"`
}

type ChartRequest struct {
	TF      string `query:"tf" json:"tf" default:"4h" validate:"oneof=1h 4h 1d 1w 1M"`
	Width   int    `query:"width" json:"width" default:"1200" validate:"gte=100,lte=10000"`
	Height  int    `query:"height" json:"height" default:"600" validate:"gte=100,lte=10000"`
	Visible int    `query:"visible" json:"visible" validate:"gte=0"`
}

type VerifyRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}

type PerformanceRequest struct {
	Mode  string `query:"mode" json:"mode" default:"realtime" validate:"oneof=realtime hybrid"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}
