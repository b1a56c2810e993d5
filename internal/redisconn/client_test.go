package redisconn

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testRedisURL() string {
	if v := os.Getenv("CODR_TEST_REDIS_URL"); v != "" {
		return v
	}
	return "redis://localhost:6379/0"
}

func newLiveClient(t *testing.T) *Client {
	t.Helper()
	logger := logrus.NewEntry(logrus.New())
	c, err := NewClient(testRedisURL(), logger)
	if err != nil {
		t.Skipf("no live redis at %s: %v", testRedisURL(), err)
	}
	return c
}

func TestNewClientRejectsMalformedURL(t *testing.T) {
	logger := logrus.NewEntry(logrus.New())
	if _, err := NewClient("not-a-url::", logger); err == nil {
		t.Fatal("expected malformed redis url to error")
	}
}

func TestClientHealthyAgainstLiveRedis(t *testing.T) {
	c := newLiveClient(t)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !c.Healthy(ctx) {
		t.Fatal("expected a freshly connected client to report healthy")
	}
}

func TestClientHealthyFalseAfterClose(t *testing.T) {
	c := newLiveClient(t)
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if c.Healthy(ctx) {
		t.Fatal("expected a closed client to report unhealthy")
	}
}
