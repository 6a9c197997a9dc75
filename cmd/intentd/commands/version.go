package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gossipnet/intentd/version"
)

var verbose bool

// VersionCmd prints the version of intentd.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return err
		}
		values, err := json.MarshalIndent(struct {
			Intentd      string `json:"intentd"`
			GitCommit    string `json:"git_commit,omitempty"`
			WireProtocol uint64 `json:"wire_protocol"`
		}{
			Intentd:      version.IntentdSemVer,
			GitCommit:    version.GitCommit,
			WireProtocol: version.WireProtocol.Uint64(),
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return err
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol versions")
}
