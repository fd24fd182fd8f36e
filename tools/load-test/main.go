package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL     = "http://localhost:8080/api/v1"
	contentType = "application/json"
)

var (
	languages = []string{"Hindi", "English", "Bengali", "Tamil"}
	locations = []string{"Pune", "Hyderabad", "Delhi"}
)

// Each simulated employee walks through a full day; the duplicated
// check-in races the first one to exercise the attendance version check.
var dayActions = []string{"check-in", "check-in", "start-break", "end-break", "final-check-out"}

func main() {
	numEmployees := 500
	concurrency := 50 // Number of concurrent employees to avoid local port exhaustion

	fmt.Printf("Creating %d employees at %s\n", numEmployees, baseURL)
	ids := make([]string, 0, numEmployees)
	runID := time.Now().Unix()
	for i := 0; i < numEmployees; i++ {
		id, err := createEmployee(i, runID)
		if err != nil {
			fmt.Printf("create employee %d: %v\n", i, err)
			continue
		}
		ids = append(ids, id)
	}

	totalRequests := len(ids) * len(dayActions)
	fmt.Printf("Starting load test: %d employees (%d requests each) with concurrency %d\n", len(ids), len(dayActions), concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var successCount, conflictCount, failCount int64

	startTime := time.Now()

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		go func(empID string) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			for _, action := range dayActions {
				resp, err := http.Post(baseURL+"/employees/"+empID+"/"+action, contentType, nil)
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					continue
				}

				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&successCount, 1)
				case resp.StatusCode == http.StatusConflict:
					atomic.AddInt64(&conflictCount, 1)
				default:
					atomic.AddInt64(&failCount, 1)
				}
				resp.Body.Close()
			}
		}(id)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Successful:     %d\n", successCount)
	fmt.Printf("Conflicts:      %d\n", conflictCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}

func createEmployee(i int, runID int64) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"firstName": "Load",
		"lastName":  fmt.Sprintf("Tester%d", i),
		"email":     fmt.Sprintf("load-%d-%d@crm.test", runID, i),
		"language":  languages[i%len(languages)],
		"location":  locations[i%len(locations)],
	})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(baseURL+"/employees", contentType, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.ID, nil
}
