package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "timetable",
	Short: "Builds university course timetables with simulated annealing",
}

func main() {
	rootCmd.AddCommand(newSolveCommand())
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
