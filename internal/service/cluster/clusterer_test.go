package cluster

import (
	"math"
	"testing"

	"SignalPull/internal/domain/models"
)

func pos(id string, x, y float64, s models.Sentiment) models.MarkerPosition {
	return models.MarkerPosition{
		Signal: models.SignalView{Signal: models.Signal{ID: id, Sentiment: s}},
		X:      x,
		Y:      y,
	}
}

func TestClusterThreeCloseMarkers(t *testing.T) {
	in := []models.MarkerPosition{
		pos("a", 100, 10, models.SentimentLong),
		pos("b", 100, 12, models.SentimentLong),
		pos("c", 100.2, 14, models.SentimentShort),
	}
	res := Cluster(in, Options{YThreshold: 25, MinClusterSize: 3})
	if len(res.Clusters) != 1 || len(res.Standalone) != 0 {
		t.Fatalf("expected one cluster, got %d clusters %d standalone", len(res.Clusters), len(res.Standalone))
	}
	c := res.Clusters[0]
	if c.ID != "cluster_a_b_c" {
		t.Fatalf("unexpected id %q", c.ID)
	}
	if math.Abs(c.X-(100+100+100.2)/3) > 1e-9 || math.Abs(c.Y-12) > 1e-9 {
		t.Fatalf("centroid not the mean: (%v, %v)", c.X, c.Y)
	}

	res = Cluster(in, Options{YThreshold: 25, MinClusterSize: 4})
	if len(res.Clusters) != 0 || len(res.Standalone) != 3 {
		t.Fatalf("expected all standalone with min size 4, got %d clusters", len(res.Clusters))
	}
}

func TestClusterSplitsOnGap(t *testing.T) {
	in := []models.MarkerPosition{
		pos("a", 50, 0, models.SentimentLong),
		pos("b", 50, 20, models.SentimentLong),
		pos("c", 50, 40, models.SentimentLong),
		pos("d", 50, 200, models.SentimentShort),
		pos("e", 50, 210, models.SentimentShort),
	}
	res := Cluster(in, Options{})
	if len(res.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(res.Clusters))
	}
	if len(res.Clusters[0].Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(res.Clusters[0].Members))
	}
	if len(res.Standalone) != 2 {
		t.Fatalf("expected 2 standalone, got %d", len(res.Standalone))
	}
}

func TestClusterSeparateColumns(t *testing.T) {
	in := []models.MarkerPosition{
		pos("a", 10, 10, models.SentimentLong),
		pos("b", 11, 10, models.SentimentLong),
		pos("c", 12, 10, models.SentimentLong),
	}
	res := Cluster(in, Options{})
	if len(res.Clusters) != 0 || len(res.Standalone) != 3 {
		t.Fatalf("markers on different columns must not cluster")
	}
}

func TestClusterStableOnEqualY(t *testing.T) {
	in := []models.MarkerPosition{
		pos("z", 5, 30, models.SentimentLong),
		pos("y", 5, 30, models.SentimentLong),
		pos("x", 5, 30, models.SentimentLong),
	}
	res := Cluster(in, Options{})
	if len(res.Clusters) != 1 || res.Clusters[0].ID != "cluster_z_y_x" {
		t.Fatalf("ties must keep input order, got %+v", res.Clusters)
	}
}

func TestMajoritySentiment(t *testing.T) {
	c := models.MarkerCluster{Members: []models.MarkerPosition{
		pos("a", 0, 0, models.SentimentLong),
		pos("b", 0, 0, models.SentimentLong),
		pos("c", 0, 0, models.SentimentShort),
	}}
	if got := MajoritySentiment(c); got != models.SentimentLong {
		t.Fatalf("expected LONG, got %s", got)
	}
	c.Members = append(c.Members, pos("d", 0, 0, models.SentimentShort))
	if got := MajoritySentiment(c); got != models.SentimentMixed {
		t.Fatalf("expected MIXED, got %s", got)
	}
}

func TestExpandedPositionsStartAtTop(t *testing.T) {
	c := models.MarkerCluster{X: 100, Y: 100, Members: []models.MarkerPosition{
		pos("a", 0, 0, models.SentimentLong),
		pos("b", 0, 0, models.SentimentShort),
		pos("c", 0, 0, models.SentimentLong),
		pos("d", 0, 0, models.SentimentLong),
	}}
	pts := ExpandedPositions(c, 50)
	if len(pts) != 4 {
		t.Fatalf("expected 4 points")
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if pts[i].Signal.ID != want {
			t.Fatalf("point %d carries signal %q, want %q", i, pts[i].Signal.ID, want)
		}
	}
	if pts[0].Angle != -90 || pts[1].Angle != 0 {
		t.Fatalf("angles = %v, %v", pts[0].Angle, pts[1].Angle)
	}
	if math.Abs(pts[0].X-100) > 1e-9 || math.Abs(pts[0].Y-50) > 1e-9 {
		t.Fatalf("first point should be straight above the centroid, got %+v", pts[0])
	}
	if math.Abs(pts[1].X-150) > 1e-9 || math.Abs(pts[1].Y-100) > 1e-9 {
		t.Fatalf("second point should be to the right, got %+v", pts[1])
	}
}
