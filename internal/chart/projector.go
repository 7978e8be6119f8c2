package chart

import "SignalPull/internal/domain/models"

// Projector maps chart coordinates to pixels. ok=false means the value cannot be placed
// in the current view.
type Projector interface {
	TimeToX(t int64) (x float64, ok bool)
	PriceToY(p float64) (y float64, ok bool)
}

// Viewport is the visible window of a chart in both data and pixel space.
type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}

// Linear is a Projector with linear time and price scales over a Viewport.
type Linear struct {
	V Viewport
}

func (l Linear) TimeToX(t int64) (float64, bool) {
	v := l.V
	if t < v.From || t > v.To || v.Width <= 0 {
		return 0, false
	}
	if v.To == v.From {
		return v.Width / 2, true
	}
	return float64(t-v.From) / float64(v.To-v.From) * v.Width, true
}

func (l Linear) PriceToY(p float64) (float64, bool) {
	v := l.V
	if v.MaxPrice <= v.MinPrice || v.Height <= 0 {
		return 0, false
	}
	return (v.MaxPrice - p) / (v.MaxPrice - v.MinPrice) * v.Height, true
}

// FitPrices sets the price range to the visible candles' low/high with 5% padding.
func (v *Viewport) FitPrices(candles []models.Candle) {
	lo, hi := 0.0, 0.0
	found := false
	for _, c := range candles {
		if c.Time < v.From || c.Time > v.To {
			continue
		}
		if !found || c.Low < lo {
			lo = c.Low
		}
		if !found || c.High > hi {
			hi = c.High
		}
		found = true
	}
	if !found {
		return
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = hi * 0.01
	}
	v.MinPrice, v.MaxPrice = lo-pad, hi+pad
}
