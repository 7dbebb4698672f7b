package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorExposesExpectedCounters(t *testing.T) {
	c := NewCollector("sender")
	c.BlocksSent.Inc()
	c.Retransmissions.Inc()
	c.Retransmissions.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`parlink_blocks_sent_total{role="sender"} 1`,
		`parlink_retransmissions_total{role="sender"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\nfull output:\n%s", want, body)
		}
	}
}

func TestTwoCollectorsDoNotShareARegistry(t *testing.T) {
	sender := NewCollector("sender")
	receiver := NewCollector("receiver")

	sender.BlocksSent.Inc()
	receiver.BlocksReceived.Inc()

	senderBody := scrape(t, sender)
	if strings.Contains(senderBody, `role="receiver"`) {
		t.Error("sender collector's scrape exposed receiver-labelled series")
	}
	if !strings.Contains(senderBody, `parlink_blocks_sent_total{role="sender"} 1`) {
		t.Error("sender collector's scrape missing its own increment")
	}
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}
