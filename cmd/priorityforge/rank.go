package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/seed"
)

func newRankCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "rank FILE",
		Short: "Rank the tasks in a YAML file with the default weights",
		Long: `Rank the tasks in a YAML seed file without a database and print the
ranked list. Completed tasks are left out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return errors.New("--top must not be negative")
			}
			inputs, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			tasks, err := seed.ToTasks(inputs, time.Now().UTC())
			if err != nil {
				return err
			}
			ranked, err := rankTasks(tasks)
			if err != nil {
				return err
			}
			if top > 0 && top < len(ranked) {
				ranked = ranked[:top]
			}
			return writeRanking(cmd.OutOrStdout(), ranked)
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "print only the first N tasks (0 prints all)")
	return cmd
}

func rankTasks(tasks []domain.Task) ([]ranking.RankedTask, error) {
	engine, err := ranking.NewEngine(ranking.DefaultEngineConfig())
	if err != nil {
		return nil, err
	}
	if err := engine.Load(tasks); err != nil {
		return nil, fmt.Errorf("failed to rank tasks: %w", err)
	}
	return engine.Ranked(), nil
}

func writeRanking(w io.Writer, ranked []ranking.RankedTask) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No open tasks.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tPRIORITY\tSCORE\tPROJECT\tTITLE")
	for _, rt := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\n",
			rt.Rank, rt.Task.ID, rt.Task.Priority, rt.Score, rt.Task.Project, rt.Task.Title)
	}
	return tw.Flush()
}
