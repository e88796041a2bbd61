package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aicfd/aicfd/internal/app"
)

type tierCounts struct {
	Recent   int `json:"recent"`
	Sessions int `json:"sessions"`
	Medium   int `json:"medium"`
	Old      int `json:"old"`
	Archive  int `json:"archive"`
}

type statusReport struct {
	BaseDir    string            `json:"baseDir"`
	Platforms  map[string]string `json:"platforms"`
	TierCounts tierCounts        `json:"tierCounts"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current pipeline state as JSON: platform consent and tier file counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := resolvedBaseDir()
		if err != nil {
			return err
		}
		a, err := app.New(baseDir)
		if err != nil {
			return err
		}

		report := statusReport{
			BaseDir:   baseDir,
			Platforms: map[string]string{},
		}
		for _, entry := range a.Permissions.List() {
			report.Platforms[entry.Platform] = string(entry.Status)
		}

		report.TierCounts = tierCounts{
			Recent:   countAicfFiles(a.Paths.Recent),
			Sessions: countAicfFiles(a.Paths.Sessions),
			Medium:   countAicfFiles(a.Paths.Medium),
			Old:      countAicfFiles(a.Paths.Old),
			Archive:  countAicfFiles(a.Paths.Archive),
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func countAicfFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
