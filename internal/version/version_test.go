package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Full embeds Short and the commit.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), Commit)
}

// TestAttachCobraVersionCommand runs the subcommand through cobra.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := &cobra.Command{Use: "mailbox-test"}
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	AttachCobraVersionCommand(root)

	require.NoError(t, root.Execute())
	require.Equal(t, Full()+"\n", out.String())
}
