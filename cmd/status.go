package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwbudde/lnstsp/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	cancelJob bool
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	statusCmd.Flags().BoolVar(&cancelJob, "cancel", false, "Cancel the given job")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus mirrors the status response of the server.
type jobStatus struct {
	server.Job
	Elapsed             float64 `json:"elapsed"`
	IterationsPerSecond float64 `json:"iterationsPerSecond"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if cancelJob {
			return fmt.Errorf("--cancel requires a job ID")
		}
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	if cancelJob {
		return postCancel(fmt.Sprintf("%s/api/v1/jobs/%s/cancel", serverURL, jobID), jobID)
	}
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	var jobs []server.Job
	if err := getJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s\n", job.State)
		fmt.Printf("  Instance: %s (%d cities)\n", job.Config.InstancePath, job.Config.Cities)
		if job.BestCost > 0 {
			fmt.Printf("  Cost: %.2f -> %.2f\n", job.InitialCost, job.BestCost)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	var status jobStatus
	if err := getJSON(url, &status); err != nil {
		if errors.Is(err, errNotFound) {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return err
	}
	printJobStatus(status)
	return nil
}

func printJobStatus(status jobStatus) {
	fmt.Printf("Job: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	if status.StopReason != "" {
		fmt.Printf("Stop reason: %s\n", status.StopReason)
	}
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Instance: %s\n", status.Config.InstancePath)
	fmt.Printf("  Cities: %d\n", status.Config.Cities)
	fmt.Printf("  Seed: %d\n", status.Config.Seed)
	if status.Config.MaxIterations > 0 {
		fmt.Printf("  Max iterations: %d\n", status.Config.MaxIterations)
	}
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Iterations: %d\n", status.Iterations)
	if status.InitialCost > 0 {
		fmt.Printf("  Initial Cost: %.2f\n", status.InitialCost)
	}
	if status.BestCost > 0 {
		fmt.Printf("  Best Cost: %.2f\n", status.BestCost)
		if status.InitialCost > 0 {
			improvement := status.InitialCost - status.BestCost
			fmt.Printf("  Improvement: %.2f (%.1f%%)\n", improvement, 100*improvement/status.InitialCost)
		}
	}
	if status.Gap != nil {
		fmt.Printf("  Gap to best known: %.2f%%\n", 100*(*status.Gap))
	}
	if status.Destroy != "" {
		fmt.Printf("  Operators: %s / %s\n", status.Destroy, status.Repair)
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.IterationsPerSecond > 0 {
		fmt.Printf("  Throughput: %.0f iterations/sec\n", status.IterationsPerSecond)
	}

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}
}

func postCancel(url, jobID string) error {
	resp, err := httpClient.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Printf("Cancelling job %s\n", jobID)
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("job not found: %s", jobID)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}
}

var errNotFound = errors.New("not found")

func getJSON(url string, v any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
