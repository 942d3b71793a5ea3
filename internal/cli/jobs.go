package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления пакетами.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage LOW tag removal jobs",
	}

	cmd.AddCommand(
		newJobSubmitCmd(clientFn, outputFn),
		newJobListCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobResultsCmd(clientFn, outputFn),
	)

	return cmd
}

var jobHeaders = []string{"ID", "LOW_TAG", "STATUS", "DONE", "FAILED", "SUBMITTER", "CREATED"}

func jobRow(j JobResponse) []string {
	return []string{
		j.ID,
		j.LowTag,
		j.Status,
		fmt.Sprintf("%d/%d", j.CompletedCount, j.TaskCount),
		strconv.Itoa(j.FailedCount),
		j.Submitter,
		j.CreatedAt,
	}
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		lowTag           string
		catalogIDs       bool
		deleteUnused     bool
		replicate        bool
		bypassTagRemoval bool
		handleComponents bool
	)

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a job from a file of record ids (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			records, err := ParseRecordList(in, catalogIDs)
			if err != nil {
				return err
			}

			job, err := client.SubmitJob(CreateJobRequest{
				Records:             records,
				LowTag:              strings.ToUpper(lowTag),
				DeleteUnusedRecords: deleteUnused,
				ReplicateRecords:    replicate,
				BypassTagRemoval:    bypassTagRemoval,
				HandleComponents:    handleComponents,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job submitted: %s (%d records)", job.ID, job.TaskCount))
			out.Print(jobHeaders, [][]string{jobRow(*job)}, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&lowTag, "low-tag", "", "LOW tag to remove (required)")
	cmd.Flags().BoolVar(&catalogIDs, "catalog-ids", false, "Treat ids in the file as union catalog ids")
	cmd.Flags().BoolVar(&deleteUnused, "delete-unused", false, "Delete records left without LOW tags")
	cmd.Flags().BoolVar(&replicate, "replicate", false, "Replicate records")
	cmd.Flags().BoolVar(&bypassTagRemoval, "bypass-tag-removal", false, "Keep SID fields of the library")
	cmd.Flags().BoolVar(&handleComponents, "handle-components", false, "Also process component records")
	cmd.MarkFlagRequired("low-tag")

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListJobsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = jobRow(j)
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (IN_PROGRESS, COMPLETED, ABORTED)")
	cmd.Flags().StringVar(&opts.Submitter, "submitter", "", "Filter by submitter")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Print(jobHeaders, [][]string{jobRow(*job)}, job)
			return nil
		},
	}
}

func newJobResultsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "results JOB_ID",
		Short: "List task results of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			results, err := client.ListResults(args[0])
			if err != nil {
				return err
			}

			headers := []string{"LOCAL_ID", "RECORD_ID", "STATUS", "DETAILS"}
			rows := make([][]string, len(results))
			for i, r := range results {
				status, details := "OK", strings.Join(r.Report, "; ")
				if r.Failed {
					status, details = "FAILED", r.FailureReason
				}
				rows[i] = []string{r.RecordIDHints.LocalID, r.RecordID, status, details}
			}

			out.Print(headers, rows, results)
			return nil
		},
	}
}
