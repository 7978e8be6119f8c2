// Package cluster groups signal markers that would overlap on screen.
package cluster

import (
	"math"
	"sort"
	"strings"

	"SignalPull/internal/domain/models"
)

const (
	DefaultYThreshold     = 25.0
	DefaultMinClusterSize = 3
	DefaultExpandRadius   = 50.0
)

// Options tunes the clustering thresholds. Zero values take the defaults.
type Options struct {
	YThreshold     float64
	MinClusterSize int
}

func (o Options) withDefaults() Options {
	if o.YThreshold <= 0 {
		o.YThreshold = DefaultYThreshold
	}
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = DefaultMinClusterSize
	}
	return o
}

// Result is the partition of the input positions.
type Result struct {
	Clusters   []models.MarkerCluster
	Standalone []models.MarkerPosition
}

// Cluster partitions positions into clusters and standalone markers.
// Positions sharing a rounded x are one candle column; within a column, markers are
// sorted by y and split wherever the gap to the previous marker exceeds YThreshold.
// Columns are emitted in ascending x so the output does not depend on map order.
func Cluster(positions []models.MarkerPosition, opts Options) Result {
	opts = opts.withDefaults()
	res := Result{
		Clusters:   []models.MarkerCluster{},
		Standalone: []models.MarkerPosition{},
	}

	columns := make(map[int64][]models.MarkerPosition)
	keys := make([]int64, 0)
	for _, p := range positions {
		k := int64(math.Round(p.X))
		if _, ok := columns[k]; !ok {
			keys = append(keys, k)
		}
		columns[k] = append(columns[k], p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		col := columns[k]
		if len(col) < opts.MinClusterSize {
			res.Standalone = append(res.Standalone, col...)
			continue
		}

		sort.SliceStable(col, func(i, j int) bool { return col[i].Y < col[j].Y })

		run := []models.MarkerPosition{col[0]}
		for i := 1; i < len(col); i++ {
			if col[i].Y-col[i-1].Y > opts.YThreshold {
				res.flush(run, opts.MinClusterSize)
				run = []models.MarkerPosition{}
			}
			run = append(run, col[i])
		}
		res.flush(run, opts.MinClusterSize)
	}
	return res
}

func (r *Result) flush(run []models.MarkerPosition, minSize int) {
	if len(run) == 0 {
		return
	}
	if len(run) < minSize {
		r.Standalone = append(r.Standalone, run...)
		return
	}
	r.Clusters = append(r.Clusters, newCluster(run))
}

func newCluster(members []models.MarkerPosition) models.MarkerCluster {
	ids := make([]string, len(members))
	var sx, sy float64
	for i, m := range members {
		ids[i] = m.Signal.ID
		sx += m.X
		sy += m.Y
	}
	n := float64(len(members))
	return models.MarkerCluster{
		ID:      "cluster_" + strings.Join(ids, "_"),
		X:       sx / n,
		Y:       sy / n,
		Members: members,
	}
}

// ExpandedPositions lays the members of c evenly on a circle of the given radius around
// the centroid, starting at the top (-90 degrees) and going clockwise in screen space.
func ExpandedPositions(c models.MarkerCluster, radius float64) []models.ExpandedMarker {
	if radius <= 0 {
		radius = DefaultExpandRadius
	}
	n := len(c.Members)
	out := make([]models.ExpandedMarker, n)
	for i, m := range c.Members {
		deg := -90 + 360*float64(i)/float64(n)
		rad := deg * math.Pi / 180
		out[i] = models.ExpandedMarker{
			Signal: m.Signal,
			X:      c.X + radius*math.Cos(rad),
			Y:      c.Y + radius*math.Sin(rad),
			Angle:  deg,
		}
	}
	return out
}

// MajoritySentiment returns LONG or SHORT when one strictly outnumbers the other, else MIXED.
func MajoritySentiment(c models.MarkerCluster) models.Sentiment {
	var long, short int
	for _, m := range c.Members {
		switch m.Signal.Sentiment {
		case models.SentimentLong:
			long++
		case models.SentimentShort:
			short++
		}
	}
	switch {
	case long > short:
		return models.SentimentLong
	case short > long:
		return models.SentimentShort
	default:
		return models.SentimentMixed
	}
}
