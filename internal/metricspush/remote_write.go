package metricspush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
)

// RemoteWritePusher posts snappy-compressed prompb.WriteRequests.
type RemoteWritePusher struct {
	endpoint  string
	authToken string
	client    *http.Client
}

func NewRemoteWritePusher(endpoint, authToken string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(authToken),
		client:    &http.Client{Timeout: defaultPushTimeout},
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("metricspush: gather: %w", err)
	}
	series := toTimeSeries(families, time.Now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	payload, err := (&prompb.WriteRequest{Timeseries: series}).Marshal()
	if err != nil {
		return fmt.Errorf("metricspush: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("metricspush: remote write: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("metricspush: remote write returned %s", resp.Status)
	}
	return nil
}

// toTimeSeries flattens counters and gauges to one sample each. Histograms
// and summaries contribute their _sum and _count; buckets and quantiles are
// left to a scraping setup.
func toTimeSeries(families []*dto.MetricFamily, ts int64) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	for _, family := range families {
		name := family.GetName()
		for _, m := range family.GetMetric() {
			for _, s := range samplesOf(family.GetType(), m) {
				out = append(out, prompb.TimeSeries{
					Labels:  seriesLabels(name+s.suffix, m.GetLabel()),
					Samples: []prompb.Sample{{Value: s.value, Timestamp: ts}},
				})
			}
		}
	}
	return out
}

type sample struct {
	suffix string
	value  float64
}

func samplesOf(kind dto.MetricType, m *dto.Metric) []sample {
	switch kind {
	case dto.MetricType_COUNTER:
		if c := m.GetCounter(); c != nil {
			return []sample{{value: c.GetValue()}}
		}
	case dto.MetricType_GAUGE:
		if g := m.GetGauge(); g != nil {
			return []sample{{value: g.GetValue()}}
		}
	case dto.MetricType_HISTOGRAM:
		if h := m.GetHistogram(); h != nil {
			return []sample{
				{suffix: "_sum", value: h.GetSampleSum()},
				{suffix: "_count", value: float64(h.GetSampleCount())},
			}
		}
	case dto.MetricType_SUMMARY:
		if s := m.GetSummary(); s != nil {
			return []sample{
				{suffix: "_sum", value: s.GetSampleSum()},
				{suffix: "_count", value: float64(s.GetSampleCount())},
			}
		}
	}
	return nil
}

// seriesLabels returns name plus pairs sorted by label name, as remote
// write receivers require.
func seriesLabels(name string, pairs []*dto.LabelPair) []prompb.Label {
	labels := make([]prompb.Label, 0, len(pairs)+1)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	for _, pair := range pairs {
		labels = append(labels, prompb.Label{Name: pair.GetName(), Value: pair.GetValue()})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}
