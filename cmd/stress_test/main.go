// Hammers the status-transition endpoint with concurrent conflicting
// requests against a single order to exercise the per-order lock and the
// version check. Expects a running server and seeded schema.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	totalRequests = 50
	workerCount   = 10
)

func main() {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// Create one pending order to fight over.
	body, _ := json.Marshal(map[string]any{
		"items": []map[string]any{
			{"productId": "stress-product", "name": "Stress Product", "sku": "STR-1", "unitPrice": "9.99", "quantity": 1},
		},
	})
	resp, err := client.Post(baseURL+"/api/admin/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("create order: %v", err)
	}
	var created struct {
		Order struct {
			Number string `json:"number"`
		} `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatalf("decode create response: %v", err)
	}
	resp.Body.Close()
	if created.Order.Number == "" {
		log.Fatalf("order creation failed with status %d", resp.StatusCode)
	}
	log.Printf("created order %s", created.Order.Number)

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup

	sem := make(chan struct{}, workerCount)
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(id int) {
			defer wg.Done()
			defer func() { <-sem }()

			status := "confirmed"
			if id%2 == 1 {
				status = "processing"
			}
			payload, _ := json.Marshal(map[string]string{
				"status":    status,
				"note":      fmt.Sprintf("stress request %d", id),
				"requestId": fmt.Sprintf("stress-%d-%d", id, time.Now().UnixNano()),
			})
			req, _ := http.NewRequest(http.MethodPatch,
				baseURL+"/api/admin/orders/"+created.Order.Number+"/status", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Admin-Actor", "stress-tool")

			resp, err := client.Do(req)
			if err != nil {
				failCount.Add(1)
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("done in %v: %d succeeded, %d failed", elapsed, successCount.Load(), failCount.Load())
}
