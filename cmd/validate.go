package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/convoflow/convoflow/flow"
)

var validateDir string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the flow definitions in a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := filepath.Join(validateDir, "*.yaml")
		files, err := filepath.Glob(pattern)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no flow files match %s", pattern)
		}

		failed := 0
		for _, file := range files {
			f, err := flow.LoadFile(file)
			if err != nil {
				failed++
				fmt.Printf("FAIL %s: %v\n", file, err)
				continue
			}
			fmt.Printf("OK   %s (%s, %d nodes, %d edges)\n", file, f.ID, len(f.Nodes), len(f.Edges))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d flow files invalid", failed, len(files))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateDir, "dir", "d", "flows", "directory containing flow yaml files")
}
