package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
)

func (cli *commandLine) syncCmd() *cobra.Command {
	var (
		studentID string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import a student's platform and user courses into the transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dryRun {
				return cli.planSync(cmd, studentID)
			}
			tr, err := cli.transcripts.Sync(cmd.Context(), adminActor, studentID)
			if err != nil {
				return errors.Wrap(err, "syncing transcript")
			}
			imported := 0
			for _, c := range tr.Courses {
				if c.Provenance.Imported() {
					imported++
				}
			}
			color.New(color.FgGreen).Fprintf(cli.out, "%s: %d imported courses\n", tr.StudentName, imported)
			return nil
		},
	}
	studentFlag(cmd, &studentID)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes as a unified diff without writing them")
	return cmd
}

// planSync prints what a sync would change to the course list.
func (cli *commandLine) planSync(cmd *cobra.Command, studentID string) error {
	plan, err := cli.transcripts.PlanSync(cmd.Context(), adminActor, studentID)
	if err != nil {
		return errors.Wrap(err, "planning sync")
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        courseLines(plan.Transcript.Courses),
		B:        courseLines(plan.Result().Courses),
		FromFile: "current",
		ToFile:   "synced",
		Context:  2,
	})
	if err != nil {
		return errors.Wrap(err, "diffing courses")
	}
	if diff == "" {
		fmt.Fprintln(cli.out, "no changes")
		return nil
	}
	fmt.Fprint(cli.out, diff)
	return nil
}

func courseLines(courses []transcript.Course) []string {
	sorted := append([]transcript.Course(nil), courses...)
	transcript.SortCourses(sorted)
	lines := make([]string, 0, len(sorted))
	for _, c := range sorted {
		lines = append(lines, fmt.Sprintf("%s | %s | %s credits | %s\n", c.GradeLevel, c.Title, c.Credits, c.Provenance))
	}
	return lines
}

func (cli *commandLine) gpaCmd() *cobra.Command {
	var studentID string
	cmd := &cobra.Command{
		Use:   "gpa",
		Short: "Recalculate and store a student's GPA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tr, err := cli.transcripts.GetForStudent(ctx, adminActor, studentID)
			if err != nil {
				return errors.Wrap(err, "getting transcript")
			}
			if tr, err = cli.transcripts.Recalculate(ctx, adminActor, tr.ID); err != nil {
				return errors.Wrap(err, "recalculating transcript")
			}

			bold := color.New(color.Bold)
			bold.Fprintln(cli.out, tr.StudentName)
			fmt.Fprintf(cli.out, "GPA:           %s\n", tr.GPA)
			if tr.WeightedGPA != "" {
				fmt.Fprintf(cli.out, "Weighted GPA:  %s\n", tr.WeightedGPA)
			}
			fmt.Fprintf(cli.out, "Total credits: %s\n", tr.TotalCredits.String())
			return nil
		},
	}
	studentFlag(cmd, &studentID)
	return cmd
}

func (cli *commandLine) transcriptCmd() *cobra.Command {
	var studentID string
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print a student's transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := cli.transcripts.GetForStudent(cmd.Context(), adminActor, studentID)
			if err != nil {
				return errors.Wrap(err, "getting transcript")
			}
			cli.printTranscript(tr)
			return nil
		},
	}
	studentFlag(cmd, &studentID)
	return cmd
}

func (cli *commandLine) printTranscript(tr transcript.Transcript) {
	color.New(color.Bold).Fprintln(cli.out, tr.StudentName)
	fmt.Fprintf(cli.out, "Parent: %s <%s>\n", tr.ParentName, tr.ParentEmail)
	if tr.SchoolName != "" {
		fmt.Fprintf(cli.out, "School: %s\n", tr.SchoolName)
	}

	summary := transcript.Calculate(tr.Courses)
	for _, b := range student.Buckets {
		courses := tr.CoursesIn(b)
		if len(courses) == 0 {
			continue
		}
		color.New(color.FgYellow).Fprintf(cli.out, "\n%s\n", strings.ToUpper(string(b)))

		table := tablewriter.NewWriter(cli.out)
		table.SetHeader([]string{"Course", "Term 1", "Term 2", "Term 3", "Credits", "Level", "Source"})
		for _, c := range courses {
			table.Append([]string{c.Title, c.Term1, c.Term2, c.Term3, c.Credits, string(c.Level), string(c.Provenance)})
		}
		table.Render()
	}

	fmt.Fprintf(cli.out, "\nGPA %s", summary.GPA)
	if summary.WeightedGPA != "" {
		fmt.Fprintf(cli.out, " (weighted %s)", summary.WeightedGPA)
	}
	fmt.Fprintf(cli.out, " over %s credits\n", summary.TotalCredits.String())
}
