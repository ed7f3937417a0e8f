package handlers

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/services"
	"github.com/redis/go-redis/v9"
)

func TestStreamAuctionEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	service := &services.AuctionService{
		Redis: redisClient,
	}

	handler := NewAuctionHandler(service)
	app := fiber.New()
	app.Get("/api/v1/auctions/stream", handler.StreamEvents)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer app.Shutdown()
	baseURL := "http://" + ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	payload := `{"type":"awarded","auction_id":"auction-1","category":"steel-rebar","country":"IN","winners":["sup-a"]}`
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = redisClient.Publish(context.Background(), services.AuctionEventChannel, payload).Err()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/auctions/stream", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to call SSE endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for SSE data")
		default:
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read SSE line: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				if !strings.Contains(line, `"auction-1"`) {
					t.Fatalf("unexpected SSE payload: %s", line)
				}
				return
			}
		}
	}
}
