package main

import (
	"fmt"
	"os"

	"github.com/andeen171/onfly-api/cmd/cli/auth"
	"github.com/andeen171/onfly-api/cmd/cli/expenses"
	"github.com/andeen171/onfly-api/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	expenses.InitExpenses(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
