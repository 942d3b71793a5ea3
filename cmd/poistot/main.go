// Poistot CLI — отправка пакетов на удаление LOW-тегов и просмотр
// их результатов через HTTP API.
//
// Использование:
//
//	poistot [--api-url URL] [--json] [--session-token TOKEN] job <subcommand> [flags]
//
// Команды:
//
//	job submit   Отправить пакет из файла ID записей
//	job list     Список пакетов
//	job show     Пакет
//	job results  Результаты tasks пакета
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Poistot/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var sessionToken string

	rootCmd := &cobra.Command{
		Use:           "poistot",
		Short:         "Poistot CLI — remove library LOW tags from union catalog records",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&sessionToken, "session-token", os.Getenv("POISTOT_SESSION_TOKEN"), "Session token (default $POISTOT_SESSION_TOKEN)")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, sessionToken) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewJobCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
