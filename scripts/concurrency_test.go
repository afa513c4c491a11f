//go:build ignore
// +build ignore

// Package main is a manual stress test for the loan endpoint of the catalog API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <isbn> <user1_id> [user2_id ...]
//
// Or with environment variables:
//
//	ISBN=978-0134685991  USER_IDS=U001,U002  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires one goroutine per user, all posting a loan for the same ISBN at once.
//  2. Counts 201 Created against 409 Conflict answers.
//  3. Reads GET /loans?status=active back and checks the ISBN has exactly one active loan.
//
// Prerequisites:
//   - The server must be running with --serve (sample data seeds U001/U002).
//   - The book must be available and every user must exist.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const defaultServerURL = "http://localhost:8080"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type loanResult struct {
	UserID     string
	StatusCode int
	Body       string
	Err        error
}

func main() {
	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	isbn := os.Getenv("ISBN")
	var userIDs []string
	if env := os.Getenv("USER_IDS"); env != "" {
		userIDs = strings.Split(env, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		isbn = args[0]
	}
	if len(args) >= 2 {
		userIDs = args[1:]
	}

	if isbn == "" {
		log.Fatal("Usage: ISBN=<isbn> USER_IDS=<u1,u2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <isbn> <user1_id> [user2_id ...]")
	}
	if len(userIDs) == 0 {
		log.Fatal("At least one user ID must be provided via USER_IDS env or positional args")
	}

	fmt.Printf("=== Catalog Loan Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverURL)
	fmt.Printf("ISBN   : %s\n", isbn)
	fmt.Printf("Users  : %d\n\n", len(userIDs))

	results := make([]loanResult, len(userIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, uid := range userIDs {
		wg.Add(1)
		go func(idx int, userID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptLoan(serverURL, isbn, strings.TrimSpace(userID))
		}(i, uid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var created, conflicts, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-10s err=%v\n", r.UserID, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [LOAN] user=%-10s status=%d\n", r.UserID, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			conflicts++
			fmt.Printf("  [BUSY] user=%-10s status=%d\n", r.UserID, r.StatusCode)
		default:
			failures++
			fmt.Printf("  [FAIL] user=%-10s status=%d body=%s\n", r.UserID, r.StatusCode, r.Body)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Loans created : %d\n", created)
	fmt.Printf("Conflicts     : %d\n", conflicts)
	fmt.Printf("Failures      : %d\n", failures)
	fmt.Printf("Total         : %d\n\n", len(userIDs))

	fmt.Println("--- Invariant Check ---")
	active, err := countActiveLoans(serverURL, isbn)
	if err != nil {
		log.Fatalf("could not read active loans: %v", err)
	}
	fmt.Printf("Active loans for %s: %d\n", isbn, active)

	if created != 1 || active != 1 {
		fmt.Printf("\n[FAIL] expected exactly one loan, got %d created and %d active.\n", created, active)
		os.Exit(1)
	}
	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed, check server logs for details.\n", failures)
		os.Exit(1)
	}
	fmt.Println("\n[OK] the book was lent exactly once.")
}

func attemptLoan(serverURL, isbn, userID string) loanResult {
	body, _ := json.Marshal(map[string]string{"user_id": userID, "isbn": isbn})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(serverURL+"/loans", "application/json", bytes.NewReader(body))
	if err != nil {
		return loanResult{UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return loanResult{UserID: userID, StatusCode: resp.StatusCode, Body: string(raw)}
}

func countActiveLoans(serverURL, isbn string) (int, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/loans?status=active")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var loans []struct {
		ISBN string `json:"isbn"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loans); err != nil {
		return 0, fmt.Errorf("bad JSON: %w", err)
	}
	n := 0
	for _, l := range loans {
		if l.ISBN == isbn {
			n++
		}
	}
	return n, nil
}
