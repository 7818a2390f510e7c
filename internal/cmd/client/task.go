package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewTaskCommand constructs the `task` command group and subcommands.
func NewTaskCommand(baseURL BaseURLFunc) *cobra.Command {
	taskCmd := &cobra.Command{Use: "task", Short: "Task queue operations"}
	taskCmd.AddCommand(
		newTaskAddCommand(baseURL),
		newTaskGetCommand(baseURL),
		newTaskCompleteCommand(baseURL),
		newTaskStatsCommand(baseURL),
	)
	return taskCmd
}

func newTaskAddCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a task for a submission",
		RunE: func(cmd *cobra.Command, _ []string) error {
			submissionID, _ := cmd.Flags().GetString("submission-id")
			body, _ := json.Marshal(map[string]string{"submission_id": submissionID})
			resp, err := http.Post(baseURL()+"/queue/add_task", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().String("submission-id", "", "Submission to enqueue (required)")
	_ = cmd.MarkFlagRequired("submission-id")
	return cmd
}

func newTaskGetCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Long-poll for the next task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeoutMs, _ := cmd.Flags().GetInt("timeout-ms")
			u := baseURL() + "/queue/get_task"
			if timeoutMs >= 0 {
				u += "?timeout_ms=" + strconv.Itoa(timeoutMs)
			}
			resp, err := http.Get(u)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().Int("timeout-ms", -1, "Long-poll duration in ms (server default when omitted)")
	return cmd
}

func newTaskCompleteCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Report a task as completed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			taskID, _ := cmd.Flags().GetString("id")
			info, _ := cmd.Flags().GetString("info")
			body, _ := json.Marshal(map[string]string{"id": taskID, "info": info})
			resp, err := http.Post(baseURL()+"/queue/submit_completed", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("no active lease for task %s", taskID)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "status:", resp.Status)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Task id from get (required)")
	cmd.Flags().String("info", "", "Result info to forward to the collector")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newTaskStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue health and counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := http.Get(baseURL() + "/v1/healthz")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(cmd, resp)
		},
	}
}

// printResponse pretty-prints a JSON body, falling back to raw output.
func printResponse(cmd *cobra.Command, resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(raw))
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, bytes.TrimSpace(raw), "", "  ") == nil {
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
