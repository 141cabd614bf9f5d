package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avashisht/tandem/internal/config"
	"github.com/avashisht/tandem/internal/store"
	"github.com/avashisht/tandem/pkg/models"
)

var (
	tasksStatus       string
	tasksConversation string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List persisted tasks",
	Long: `List tasks from the local database.

By default shows pending tasks. Use --status to select another status
or --conversation to show every task of one conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath = store.DefaultDBPath()
		}
		if !fileExists(dbPath) {
			fmt.Println("No database yet. Run 'tandem serve' first.")
			return nil
		}

		db, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		var tasks []*models.Task
		if tasksConversation != "" {
			tasks, err = db.ListByConversation(tasksConversation)
		} else {
			status := models.TaskStatus(tasksStatus)
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", tasksStatus)
			}
			tasks, err = db.ListByStatus(status)
		}
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No matching tasks.")
			return nil
		}
		for _, task := range tasks {
			printTask(task)
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringVar(&tasksStatus, "status", string(models.TaskStatusPending), "filter by status (pending|running|completed|failed|cancelled)")
	tasksCmd.Flags().StringVar(&tasksConversation, "conversation", "", "show all tasks of one conversation")
}

func printTask(task *models.Task) {
	statusColor(task.Status).Fprintf(os.Stdout, "%-10s", task.Status)
	fmt.Printf(" %s  agent=%s", task.ID, task.AgentName)
	if task.Recurring() {
		fmt.Printf("  every %s", task.Interval())
	}
	fmt.Printf("\n  %s\n", task.Query)
	if task.ErrorMessage != "" {
		fmt.Printf("  error: %s\n", task.ErrorMessage)
	}
}

func statusColor(status models.TaskStatus) *color.Color {
	switch status {
	case models.TaskStatusCompleted:
		return color.New(color.FgGreen)
	case models.TaskStatusFailed:
		return color.New(color.FgRed)
	case models.TaskStatusRunning:
		return color.New(color.FgCyan)
	case models.TaskStatusCancelled:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgYellow)
	}
}
