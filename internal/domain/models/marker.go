package models

// MarkerPosition is a signal projected to screen coordinates.
type MarkerPosition struct {
	Signal SignalView `json:"signal"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
}

// MarkerCluster groups overlapping markers on the same candle column.
type MarkerCluster struct {
	ID      string           `json:"id"`
	X       float64          `json:"x"`
	Y       float64          `json:"y"`
	Members []MarkerPosition `json:"members"`
}

// ExpandedMarker is one cluster member laid out around the cluster centroid.
// Angle is in degrees, -90 being straight up.
type ExpandedMarker struct {
	Signal SignalView `json:"signal"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Angle  float64    `json:"angle"`
}
