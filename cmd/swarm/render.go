package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mtomcal/swarm-sub001/internal/store"
)

func renderJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWorkerTable(workers []store.WorkerRecord) {
	if len(workers) == 0 {
		fmt.Println("no workers")
		return
	}
	fmt.Printf("%-20s %-10s %-8s %-20s %s\n", "NAME", "STATUS", "PID", "BACKEND", "TAGS")
	for _, w := range workers {
		pid := "-"
		if w.PID != nil {
			pid = fmt.Sprintf("%d", *w.PID)
		}
		backend := "direct"
		if w.Tmux != nil {
			backend = "session"
			pid = "-"
		}
		fmt.Printf("%-20s %-10s %-8s %-20s %s\n", w.Name, w.Status, pid, backend, strings.Join(w.Tags, ","))
	}
}

func printWorker(w store.WorkerRecord, format string) error {
	if format == "json" {
		return renderJSON(w)
	}
	printWorkerTable([]store.WorkerRecord{w})
	return nil
}

func printWorkers(workers []store.WorkerRecord, format string) error {
	if format == "json" {
		return renderJSON(workers)
	}
	printWorkerTable(workers)
	return nil
}

func printWorkflowState(ws *store.WorkflowState, format string) error {
	if format == "json" {
		return renderJSON(ws)
	}
	fmt.Printf("name:          %s\n", ws.Name)
	fmt.Printf("status:        %s\n", ws.Status)
	fmt.Printf("current stage: %d\n", ws.CurrentStage)
	if ws.ScheduledFor != nil {
		fmt.Printf("scheduled for: %s\n", ws.ScheduledFor.Format("2006-01-02T15:04:05Z07:00"))
	}
	if ws.ActiveWorker != "" {
		fmt.Printf("active worker: %s\n", ws.ActiveWorker)
	}
	for _, h := range ws.History {
		fmt.Printf("  [%s] %s: %s %s\n", h.At.Format("15:04:05"), h.Stage, h.Event, h.Detail)
	}
	return nil
}
