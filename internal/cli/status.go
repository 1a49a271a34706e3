package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [fit-id]",
	Short: "Query a running fit service",
	Long: `Queries the HTTP service for fit job information.
If no fit-id is provided, lists all jobs.
If a fit-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listFits(fmt.Sprintf("%s/api/v1/fits", serverURL))
	}
	return getFitStatus(fmt.Sprintf("%s/api/v1/fits/%s", serverURL, args[0]), args[0])
}

func listFits(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No fits found")
		return nil
	}

	fmt.Printf("Found %d fit(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Fit ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if request, ok := job["request"].(map[string]interface{}); ok {
			if radii, ok := request["radii"].([]interface{}); ok {
				fmt.Printf("  Points: %d\n", len(radii))
			}
		}
		if cached, ok := job["cached"].(bool); ok && cached {
			fmt.Println("  Cached: true")
		}
		fmt.Println()
	}

	return nil
}

func getFitStatus(url, fitID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("fit not found: %s", fitID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Fit: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])

	if elapsed, ok := status["elapsed"].(float64); ok {
		d := time.Duration(elapsed * float64(time.Second))
		fmt.Printf("Elapsed: %s\n", d.Round(time.Millisecond))
	}
	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("Error: %s\n", errMsg)
	}

	result, ok := status["result"].(map[string]interface{})
	if !ok {
		return nil
	}

	fmt.Println()
	fmt.Println("Result:")
	if params, ok := result["params"].(map[string]interface{}); ok {
		fmt.Printf("  n0: %v\n", params["n0"])
		fmt.Printf("  r_core: %v\n", params["rCore"])
		fmt.Printf("  r_scale: %v\n", params["rScale"])
		fmt.Printf("  alpha: %v\n", params["alpha"])
		fmt.Printf("  beta: %v\n", params["beta"])
		fmt.Printf("  epsilon: %v\n", params["epsilon"])
	}
	fmt.Printf("  Success: %v\n", result["success"])
	fmt.Printf("  Message: %v\n", result["message"])
	fmt.Printf("  Iterations: %v\n", result["iterations"])
	fmt.Printf("  Residual: %v\n", result["residual"])

	return nil
}
